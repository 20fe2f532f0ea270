package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"contacts-service/pkg/logger"
)

// Response is the uniform error body.
type Response struct {
	Message string `json:"message"`
}

// Resolve maps err to a status code and client-facing message.
func Resolve(err error) (int, string) {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		messageErr    *MessageError
		httpErr       *echo.HTTPError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.Is(err, ErrUnauthorized):
		if errors.As(err, &messageErr) && errors.Is(messageErr.Kind, ErrUnauthorized) {
			return http.StatusUnauthorized, messageErr.Message
		}
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.As(err, &conflictErr):
		return http.StatusConflict, conflictErr.Message
	case errors.Is(err, ErrNotFound):
		if errors.As(err, &messageErr) {
			return http.StatusNotFound, messageErr.Message
		}
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, ErrForbidden):
		if errors.As(err, &messageErr) {
			return http.StatusForbidden, messageErr.Message
		}
		return http.StatusForbidden, http.StatusText(http.StatusForbidden)
	case errors.As(err, &httpErr):
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, MsgInternal
		}
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that writes every error
// as {"message": ...}. Internal failures are logged with full detail and
// answered with a generic message.
func HTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := logger.FromContext(c)
		status, message := Resolve(err)

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Request failed", zap.Error(err))
		case status == http.StatusUnauthorized:
			log.Warn("Request not authorized", zap.Error(err))
		default:
			log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Response{Message: message})
		}
		if writeErr != nil {
			log.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}
