package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"contacts-service/internal/apperror"
	"contacts-service/internal/model"
	"contacts-service/pkg/logger"
	"contacts-service/prometheus"
)

const userKey = "user"

// Authenticator resolves an Authorization header to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*model.User, error)
}

// AuthMiddleware rejects requests without a valid, current bearer token and
// stores the resolved user for the handlers.
func AuthMiddleware(authenticator Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authenticator.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				var unauthorized *apperror.Unauthorized
				if errors.As(err, &unauthorized) {
					prometheus.RecordAuthError(unauthorized.Reason)
					logger.FromContext(c).Debug("Authentication failed", zap.String("reason", unauthorized.Reason))
				}
				return err
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(userKey).(*model.User)
	if !ok || user == nil {
		return nil, apperror.UnauthorizedBecause("no_identity", nil)
	}
	return user, nil
}
