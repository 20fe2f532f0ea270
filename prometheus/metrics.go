package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	SignupCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_signup_total",
			Help: "Total number of successful user signups",
		},
	)

	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_login_total",
			Help: "Total number of successful logins",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // missing_header, invalid_token, unknown_user, stale_token, wrong_credentials
	)

	ContactOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_operations_total",
			Help: "Total number of contact operations",
		},
		[]string{"operation"},
	)

	MailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_mail_total",
			Help: "Total number of verification mails by outcome",
		},
		[]string{"outcome"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contacts_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contacts_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contacts_info",
			Help: "Information about the contacts service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(ContactOperationCounter)
	prometheus.MustRegister(MailCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation records the duration of a database operation. Use as
// defer TrackDBOperation("users.find")(time.Now()).
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				// The error handler has not written yet; report what it will send.
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			labels := prometheus.Labels{
				"endpoint": endpoint,
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}

			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordContactOperation records a successful contact operation
func RecordContactOperation(operation string) {
	ContactOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordMail records the outcome of a verification mail send
func RecordMail(outcome string) {
	MailCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}
