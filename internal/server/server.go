// Package server assembles the echo application: middleware, routes and the
// collaborators behind them.
package server

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"contacts-service/internal/apperror"
	"contacts-service/internal/auth"
	"contacts-service/internal/avatar"
	"contacts-service/internal/handler"
	"contacts-service/internal/mailer"
	"contacts-service/internal/middleware"
	"contacts-service/internal/repository"
	"contacts-service/internal/service"
	"contacts-service/internal/validation"
	"contacts-service/pkg/config"
	"contacts-service/pkg/logger"
	"contacts-service/prometheus"
)

// Deps are the collaborators the HTTP application is built from.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Users    repository.UserRepository
	Contacts repository.ContactRepository
	Hasher   service.PasswordHasher
	Mailer   mailer.Mailer
	Avatars  avatar.Storage
}

// New returns a configured echo instance.
func New(deps Deps) *echo.Echo {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher()
	}
	mail := deps.Mailer
	if mail == nil {
		mail = mailer.NewLogMailer(log, cfg.Server.PublicURL)
	}

	tokens := auth.NewTokenManager(cfg.JWT.SigningKey, cfg.JWT.Expiration)
	authenticator := auth.NewAuthenticator(tokens, deps.Users)

	users := service.NewUserService(service.UserDeps{
		Users:           deps.Users,
		Tokens:          tokens,
		Hasher:          hasher,
		Mailer:          mail,
		Avatars:         deps.Avatars,
		Resizer:         avatar.NewResizer(cfg.Avatar.Size),
		RequireVerified: cfg.Auth.RequireVerifiedEmail,
		Logger:          log,
	})
	contacts := service.NewContactService(deps.Contacts)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler()
	e.Validator = validation.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware(log))
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit("5M"))

	// Public routes
	e.GET("/health", handler.NewHealthHandler(deps.Users).HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	if cfg.Avatar.Storage == config.StorageLocal {
		e.Static(cfg.Avatar.URLPrefix, cfg.Avatar.Dir)
	}

	authn := middleware.AuthMiddleware(authenticator)
	limit := middleware.RateLimit(cfg.RateLimit)

	handler.NewUserHandler(users).Register(e.Group("/users"), authn, limit)
	handler.NewContactHandler(contacts).Register(e.Group("/contacts", authn))

	return e
}
