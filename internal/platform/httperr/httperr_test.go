package httperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

func TestFrom(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", fmt.Errorf("record: %w", validate.Errorf("value", "out of range")), http.StatusBadRequest, "value: out of range"},
		{"unavailable", &completion.UnavailableError{Kind: completion.KindChat, Attempts: 3, Last: errors.New("status 503 from upstream key=sk-123")}, http.StatusServiceUnavailable, completion.UserMessage},
		{"http error passes through", echo.NewHTTPError(http.StatusNotFound, "gone"), http.StatusNotFound, "gone"},
		{"abandoned", fmt.Errorf("send: %w", context.Canceled), http.StatusGatewayTimeout, "request cancelled or timed out"},
		{"unknown", errors.New("pq: connection refused at 10.0.0.1"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		he := From(c, zerolog.Nop(), tt.err)
		if he.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.code, he.Code)
		}
		if he.Message != tt.msg {
			t.Errorf("%s: expected message %q, got %v", tt.name, tt.msg, he.Message)
		}
	}
}
