// Package httperr maps errors shared across domains onto HTTP responses.
package httperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

// From converts err into an *echo.HTTPError. Domain sentinels should be
// handled by the caller first; anything unrecognized is logged and becomes
// a generic 500.
func From(c echo.Context, logger zerolog.Logger, err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ve *validate.Error
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}

	if errors.Is(err, completion.ErrUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, completion.UserMessage)
	}

	rid, _ := c.Get("request_id").(string)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Err(err).Str("request_id", rid).Msg("request abandoned")
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request cancelled or timed out")
	}

	logger.Error().Err(err).
		Str("request_id", rid).
		Str("path", c.Request().URL.Path).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
