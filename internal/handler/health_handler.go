package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"contacts-service/pkg/logger"
)

const serviceName = "contacts-service"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /health.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a HealthHandler. A nil store skips the database check.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthCheck handles the health check endpoint. ?check=db also pings the store.
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	if c.QueryParam("check") == "db" && h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			logger.FromContext(c).Error("Database health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status":  "unhealthy",
				"service": serviceName,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": serviceName,
	})
}
