package handler

import (
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

// MsgMissingFavorite is returned when the favorite toggle has no favorite key.
const MsgMissingFavorite = "missing field favorite"

// ContactHandler serves /contacts. Every route runs behind AuthMiddleware.
type ContactHandler struct {
	contacts *service.ContactService
}

// NewContactHandler creates a ContactHandler backed by contacts.
func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Register mounts the contact routes on g.
func (h *ContactHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Replace)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/favorite", h.SetFavorite)
}

func (h *ContactHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// Parse page, limit and favorite
	filter, err := parseContactFilter(c)
	if err != nil {
		return err
	}

	contacts, err := h.contacts.List(c.Request().Context(), user, filter)
	if err != nil {
		return err
	}

	log.Debug("Listed contacts",
		zap.String("user_id", user.ID),
		zap.Int("page", filter.Page),
		zap.Int("count", len(contacts)))
	return c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) Get(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	contact, err := h.contacts.Get(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// Parse and validate request
	var req validation.ContactRequest
	if err := bind(c, &req, validation.StrictObject); err != nil {
		return err
	}

	// Owner always comes from the session, never from the body
	contact, err := h.contacts.Create(c.Request().Context(), user, contactFields(req))
	if err != nil {
		return err
	}

	log.Info("Contact created",
		zap.String("user_id", user.ID),
		zap.String("contact_id", contact.ID))
	return c.JSON(http.StatusCreated, contact)
}

// Replace overwrites every field. An omitted favorite resets to false.
func (h *ContactHandler) Replace(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req validation.ContactRequest
	if err := bind(c, &req, validation.StrictObject); err != nil {
		return err
	}

	contact, err := h.contacts.Replace(c.Request().Context(), user, c.Param("id"), contactFields(req))
	if err != nil {
		return err
	}

	log.Info("Contact replaced", zap.String("contact_id", contact.ID))
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Patch(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// At least one known key is required
	var req validation.ContactPatchRequest
	if err := bind(c, &req, validation.PatchObject); err != nil {
		return err
	}

	contact, err := h.contacts.Patch(c.Request().Context(), user, c.Param("id"), req.Patch())
	if err != nil {
		return err
	}

	log.Info("Contact updated", zap.String("contact_id", contact.ID))
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) SetFavorite(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	// Only favorite is read; other keys are ignored
	var req validation.FavoriteRequest
	if err := bind(c, &req, validation.LooseObject); err != nil {
		return err
	}
	if req.Favorite == nil {
		log.Debug("Favorite toggle without favorite field", zap.String("contact_id", c.Param("id")))
		return apperror.Validation("favorite", MsgMissingFavorite)
	}

	contact, err := h.contacts.SetFavorite(c.Request().Context(), user, c.Param("id"), *req.Favorite)
	if err != nil {
		return err
	}

	log.Info("Contact favorite changed",
		zap.String("contact_id", contact.ID),
		zap.Bool("favorite", contact.Favorite))
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if err := h.contacts.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}

	log.Info("Contact deleted", zap.String("user_id", user.ID), zap.String("contact_id", id))
	return c.JSON(http.StatusOK, messageResponse("Contact deleted"))
}

func contactFields(req validation.ContactRequest) model.Contact {
	c := model.Contact{
		Name:  *req.Name,
		Email: *req.Email,
		Phone: *req.Phone,
	}
	if req.Favorite != nil {
		c.Favorite = *req.Favorite
	}
	return c
}
