package chat

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/httperr"
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
	api.POST("/chat/messages", h.Send)
	api.GET("/chat/messages", h.History)
	api.DELETE("/chat/messages", h.Clear)
	api.POST("/chat/symptoms", h.AnalyzeSymptoms)
	api.POST("/chat/advice", h.Advice)
}

type sendRequest struct {
	Message   string `json:"message"`
	UseRecord bool   `json:"use_record"`
}

func (h *Handler) Send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	m, err := h.svc.Send(ctx, auth.UserIDFromContext(ctx), req.Message, req.UseRecord)
	if err != nil {
		return httperr.From(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, m)
}

type symptomsRequest struct {
	Symptoms string `json:"symptoms"`
}

func (h *Handler) AnalyzeSymptoms(c echo.Context) error {
	var req symptomsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	m, err := h.svc.AnalyzeSymptoms(ctx, auth.UserIDFromContext(ctx), req.Symptoms)
	if err != nil {
		return httperr.From(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, m)
}

type adviceRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) Advice(c echo.Context) error {
	var req adviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	m, err := h.svc.Advice(ctx, auth.UserIDFromContext(ctx), req.Topic)
	if err != nil {
		return httperr.From(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) History(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.History(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.From(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	n, err := h.svc.Clear(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return httperr.From(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}
