package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"contacts-service/pkg/config"
	"contacts-service/prometheus"
)

// RateLimit throttles requests per client IP. It guards the unauthenticated
// credential endpoints. A non-positive RPS disables it.
func RateLimit(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RPS <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RPS),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			prometheus.RecordAuthError("rate_limited")
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
