package handler

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"contacts-service/internal/apperror"
	"contacts-service/internal/model"
	"contacts-service/internal/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// bind decodes the JSON body into dst and runs the registered validator.
func bind(c echo.Context, dst any, opts validation.DecodeOptions) error {
	if err := validation.Decode(c.Request().Body, dst, opts); err != nil {
		return err
	}
	return c.Validate(dst)
}

func messageResponse(message string) echo.Map {
	return echo.Map{"message": message}
}

// parseContactFilter reads page, limit and favorite from the query string.
func parseContactFilter(c echo.Context) (model.ContactFilter, error) {
	filter := model.ContactFilter{Page: defaultPage, Limit: defaultLimit}

	var err error
	if filter.Page, err = positiveInt(c.QueryParam("page"), "page", defaultPage); err != nil {
		return filter, err
	}
	if filter.Limit, err = positiveInt(c.QueryParam("limit"), "limit", defaultLimit); err != nil {
		return filter, err
	}
	if filter.Limit > maxLimit {
		return filter, apperror.Validation("limit", `"limit" must be less than or equal to %d`, maxLimit)
	}
	// The offset (page-1)*limit must fit in an int.
	if maxPage := math.MaxInt/filter.Limit + 1; filter.Page > maxPage {
		return filter, apperror.Validation("page", `"page" must be less than or equal to %d`, maxPage)
	}

	switch raw := c.QueryParam("favorite"); raw {
	case "":
	case "true", "false":
		favorite := raw == "true"
		filter.Favorite = &favorite
	default:
		return filter, apperror.Validation("favorite", `"favorite" must be a boolean`)
	}
	return filter, nil
}

func positiveInt(raw, field string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(field, "%q must be a number", field)
	}
	if n < 1 {
		return 0, apperror.Validation(field, "%q must be a positive number", field)
	}
	return n, nil
}
