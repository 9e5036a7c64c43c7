package medical

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/httperr"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
	"github.com/sharma-sugurthi/HealthAI/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/medical/entries", h.Add)
	api.GET("/medical/entries", h.List)
	api.GET("/medical/entries/:id", h.Get)
	api.PATCH("/medical/entries/:id", h.SetActive)
	api.DELETE("/medical/entries/:id", h.Delete)
	api.GET("/medical/summary", h.Summary)
}

func (h *Handler) Add(c echo.Context) error {
	var req EntryInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	e, err := h.svc.Add(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// List accepts optional category and active query parameters.
func (h *Handler) List(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("category"); raw != "" {
		category, err := ParseCategory(raw)
		if err != nil {
			return h.mapError(c, err)
		}
		f.Category = category
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return h.mapError(c, validate.Errorf("active", "must be true or false"))
		}
		f.Active = &active
	}

	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.List(ctx, auth.UserIDFromContext(ctx), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	e, err := h.svc.Get(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Active == nil {
		return h.mapError(c, validate.Errorf("active", "is required"))
	}
	ctx := c.Request().Context()
	e, err := h.svc.SetActive(ctx, auth.UserIDFromContext(ctx), id, *req.Active)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	sum, err := h.svc.Summary(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	if errors.Is(err, ErrEntryNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "medical entry not found")
	}
	return httperr.From(c, h.logger, err)
}
