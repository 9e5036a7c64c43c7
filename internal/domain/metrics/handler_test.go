package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService(), zerolog.Nop()), echo.New()
}

func userRequest(method, target, body string, user uuid.UUID) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(auth.WithSession(req.Context(), user, "sid"))
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestHandler_Record(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(userRequest(http.MethodPost, "/", `{"metric_type":"heart_rate","value":72}`, uuid.New()), rec)
	if err := h.Record(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unit":"bpm"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Record_Invalid(t *testing.T) {
	h, e := newTestHandler()
	for _, body := range []string{
		`{"metric_type":"heart_rate","value":500}`,
		`{"metric_type":"steps","value":5}`,
		`{"metric_type":"heart_rate"}`,
	} {
		c := e.NewContext(userRequest(http.MethodPost, "/", body, uuid.New()), httptest.NewRecorder())
		expectStatus(t, h.Record(c), http.StatusBadRequest)
	}
}

func TestHandler_QueryAndSummary(t *testing.T) {
	h, e := newTestHandler()
	user := uuid.New()
	h.svc.Record(nil, user, Glucose, 95, "", "")
	h.svc.Record(nil, user, Glucose, 105, "", "")

	rec := httptest.NewRecorder()
	c := e.NewContext(userRequest(http.MethodGet, "/?type=glucose&from=2000-01-01", "", user), rec)
	if err := h.Query(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list struct{ Data []HealthMetric; Total int }
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 2 {
		t.Errorf("expected 2 metrics, got %d", list.Total)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(userRequest(http.MethodGet, "/?type=glucose", "", user), rec)
	if err := h.Summary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum Summary
	json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Count != 2 || sum.Average == nil || *sum.Average != 100 {
		t.Errorf("unexpected summary %s", rec.Body.String())
	}

	c = e.NewContext(userRequest(http.MethodGet, "/?type=glucose&from=yesterday", "", user), httptest.NewRecorder())
	expectStatus(t, h.Query(c), http.StatusBadRequest)

	c = e.NewContext(userRequest(http.MethodGet, "/", "", user), httptest.NewRecorder())
	expectStatus(t, h.Summary(c), http.StatusBadRequest)
}

func TestHandler_Summary_EmptyIsNull(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(userRequest(http.MethodGet, "/?type=weight", "", uuid.New()), rec)
	if err := h.Summary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"average":null`) {
		t.Errorf("expected null average, got %s", rec.Body.String())
	}
}

func TestHandler_Delete(t *testing.T) {
	h, e := newTestHandler()
	owner := uuid.New()
	m, _ := h.svc.Record(nil, owner, Weight, 70, "", "")

	c := e.NewContext(userRequest(http.MethodDelete, "/", "", uuid.New()), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	expectStatus(t, h.Delete(c), http.StatusNotFound)

	rec := httptest.NewRecorder()
	c = e.NewContext(userRequest(http.MethodDelete, "/", "", owner), rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(userRequest(http.MethodDelete, "/", "", owner), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectStatus(t, h.Delete(c), http.StatusBadRequest)
}

func TestHandler_TypesAndExport(t *testing.T) {
	h, e := newTestHandler()
	user := uuid.New()
	h.svc.Record(nil, user, OxygenSaturation, 97, "", "")

	rec := httptest.NewRecorder()
	if err := h.Types(e.NewContext(userRequest(http.MethodGet, "/", "", user), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "oxygen_saturation") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.Export(e.NewContext(userRequest(http.MethodGet, "/", "", user), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(echo.HeaderContentType) != xlsxMIME {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "attachment;") {
		t.Error("expected attachment disposition")
	}
	if rec.Body.Len() == 0 {
		t.Error("expected workbook body")
	}
}
