package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/httperr"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/metrics", h.Record)
	api.GET("/metrics", h.Query)
	api.GET("/metrics/types", h.Types)
	api.GET("/metrics/summary", h.Summary)
	api.GET("/metrics/export", h.Export)
	api.DELETE("/metrics/:id", h.Delete)
}

type recordRequest struct {
	MetricType string   `json:"metric_type"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	Note       string   `json:"note"`
}

func (h *Handler) Record(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := ParseType(req.MetricType)
	if err != nil {
		return h.mapError(c, err)
	}
	if req.Value == nil {
		return h.mapError(c, validate.Errorf("value", "is required"))
	}
	ctx := c.Request().Context()
	m, err := h.svc.Record(ctx, auth.UserIDFromContext(ctx), t, *req.Value, req.Unit, req.Note)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Query(c echo.Context) error {
	var t MetricType
	if s := c.QueryParam("type"); s != "" {
		var err error
		if t, err = ParseType(s); err != nil {
			return h.mapError(c, err)
		}
	}
	r, err := rangeFromQuery(c)
	if err != nil {
		return h.mapError(c, err)
	}
	ctx := c.Request().Context()
	items, err := h.svc.Query(ctx, auth.UserIDFromContext(ctx), t, r)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) Summary(c echo.Context) error {
	t, err := ParseType(c.QueryParam("type"))
	if err != nil {
		return h.mapError(c, err)
	}
	r, err := rangeFromQuery(c)
	if err != nil {
		return h.mapError(c, err)
	}
	ctx := c.Request().Context()
	sum, err := h.svc.Summarize(ctx, auth.UserIDFromContext(ctx), t, r)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Types(c echo.Context) error {
	ctx := c.Request().Context()
	types, err := h.svc.Types(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": types})
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

func (h *Handler) Export(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return h.mapError(c, err)
	}
	ctx := c.Request().Context()
	var buf bytes.Buffer
	if err := h.svc.Export(ctx, auth.UserIDFromContext(ctx), r, &buf); err != nil {
		return h.mapError(c, err)
	}
	filename := fmt.Sprintf("health-metrics-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *Handler) mapError(c echo.Context, err error) error {
	if errors.Is(err, ErrMetricNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "metric not found")
	}
	return httperr.From(c, h.logger, err)
}

// rangeFromQuery reads from/to as RFC 3339 timestamps or YYYY-MM-DD dates.
// A bare "to" date covers that whole day.
func rangeFromQuery(c echo.Context) (TimeRange, error) {
	var r TimeRange
	from, err := parseTime("from", c.QueryParam("from"), false)
	if err != nil {
		return r, err
	}
	to, err := parseTime("to", c.QueryParam("to"), true)
	if err != nil {
		return r, err
	}
	r.From, r.To = from, to
	return r, r.validate()
}

func parseTime(field, s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, validate.Errorf(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
