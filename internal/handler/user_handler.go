package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"contacts-service/internal/apperror"
	"contacts-service/internal/middleware"
	"contacts-service/internal/model"
	"contacts-service/internal/service"
	"contacts-service/internal/validation"
	"contacts-service/pkg/logger"
)

// UserHandler serves /users.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a UserHandler backed by users.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Register mounts the user routes on g. authn guards the session routes and
// limit throttles the credential routes.
func (h *UserHandler) Register(g *echo.Group, authn, limit echo.MiddlewareFunc) {
	g.POST("/signup", h.Signup, limit)
	g.POST("/login", h.Login, limit)
	g.GET("/verify/:verificationToken", h.Verify)
	g.POST("/verify", h.ResendVerification, limit)

	g.GET("/logout", h.Logout, authn)
	g.GET("/current", h.Current, authn)
	g.PATCH("", h.UpdateSubscription, authn)
	g.DELETE("", h.Delete, authn)
	g.PATCH("/avatars", h.UpdateAvatar, authn)
}

type credentialsSummary struct {
	Email        string             `json:"email"`
	Subscription model.Subscription `json:"subscription"`
}

func summarize(u *model.User) credentialsSummary {
	return credentialsSummary{Email: u.Email, Subscription: u.Subscription}
}

func (h *UserHandler) Signup(c echo.Context) error {
	log := logger.FromContext(c)

	// Parse and validate request
	var req validation.SignupRequest
	if err := bind(c, &req, validation.StrictObject); err != nil {
		return err
	}

	// Create the account; the verification mail is sent by the service
	user, err := h.users.Signup(c.Request().Context(), *req.Email, *req.Password)
	if err != nil {
		return err
	}

	log.Info("User signed up", zap.String("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"user": model.UserSummary{
			Email:        user.Email,
			Subscription: user.Subscription,
			AvatarURL:    user.AvatarURL,
		},
	})
}

func (h *UserHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	// Parse and validate request
	var req validation.LoginRequest
	if err := bind(c, &req, validation.StrictObject); err != nil {
		return err
	}

	// Check credentials and replace any earlier session token
	token, user, err := h.users.Login(c.Request().Context(), *req.Email, *req.Password)
	if err != nil {
		return err
	}

	log.Info("User logged in", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  summarize(user),
	})
}

func (h *UserHandler) Logout(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Logout(c.Request().Context(), user); err != nil {
		return err
	}

	log.Info("User logged out", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, messageResponse("Logout successful"))
}

func (h *UserHandler) Current(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Summary())
}

func (h *UserHandler) UpdateSubscription(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req validation.SubscriptionRequest
	if err := bind(c, &req, validation.StrictObject); err != nil {
		return err
	}

	updated, err := h.users.UpdateSubscription(c.Request().Context(), user, *req.Subscription)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Subscription changed",
		zap.String("user_id", user.ID),
		zap.String("subscription", string(updated.Subscription)))
	return c.JSON(http.StatusOK, summarize(updated))
}

func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// Removes the account together with its contacts
	if _, err := h.users.Delete(c.Request().Context(), user); err != nil {
		return err
	}

	log.Info("User deleted", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, messageResponse("User deleted successfully"))
}

func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// Read the multipart upload
	file, err := c.FormFile("avatar")
	if err != nil {
		log.Debug("Avatar upload rejected", zap.Error(err))
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return apperror.Validation("avatar", `"avatar" is required`)
		}
		return apperror.Validation("avatar", `"avatar" must be a file`)
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	url, err := h.users.UpdateAvatar(c.Request().Context(), user, src)
	if err != nil {
		return err
	}

	log.Info("Avatar updated",
		zap.String("user_id", user.ID),
		zap.Int64("upload_bytes", file.Size))
	return c.JSON(http.StatusOK, echo.Map{"avatarURL": url})
}

func (h *UserHandler) Verify(c echo.Context) error {
	if err := h.users.Verify(c.Request().Context(), c.Param("verificationToken")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse("Verification successful"))
}

func (h *UserHandler) ResendVerification(c echo.Context) error {
	var req validation.EmailRequest
	if err := bind(c, &req, validation.LooseObject); err != nil {
		return err
	}

	email := ""
	if req.Email != nil {
		email = *req.Email
	}
	if err := h.users.ResendVerification(c.Request().Context(), email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse("Verification email sent"))
}
