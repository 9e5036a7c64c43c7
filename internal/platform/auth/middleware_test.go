package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, error, uuid.UUID) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen uuid.UUID
	err := mw(func(c echo.Context) error {
		seen = UserIDFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})(c)
	return c, err, seen
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestSessionMiddleware_MissingHeader(t *testing.T) {
	store := newMemorySessionStore(time.Minute, time.Now)
	mw := SessionMiddleware(NewTokens(testSigningKey), store, zerolog.Nop())

	_, err, _ := runMiddleware(t, mw, "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	store := newMemorySessionStore(time.Minute, time.Now)
	mw := SessionMiddleware(NewTokens(testSigningKey), store, zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err, _ := runMiddleware(t, mw, tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	store := newMemorySessionStore(time.Minute, time.Now)
	tokens := NewTokens(testSigningKey)
	userID := uuid.New()

	sid, _ := store.Create(context.Background(), userID)
	tok, err := tokens.Issue(userID, sid)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c, err, seen := runMiddleware(t, SessionMiddleware(tokens, store, zerolog.Nop()), "Bearer "+tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != userID {
		t.Errorf("expected user %s in context, got %s", userID, seen)
	}
	if SessionIDFromContext(c.Request().Context()) != sid {
		t.Error("expected session id in context")
	}
}

func TestSessionMiddleware_ExpiredSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newMemorySessionStore(30*time.Minute, func() time.Time { return now })
	tokens := NewTokens(testSigningKey)
	tokens.now = func() time.Time { return now }
	userID := uuid.New()

	sid, _ := store.Create(context.Background(), userID)
	tok, _ := tokens.Issue(userID, sid)

	now = now.Add(31 * time.Minute)
	_, err, _ := runMiddleware(t, SessionMiddleware(tokens, store, zerolog.Nop()), "Bearer "+tok)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_DeletedSession(t *testing.T) {
	store := newMemorySessionStore(time.Minute, time.Now)
	tokens := NewTokens(testSigningKey)
	userID := uuid.New()

	sid, _ := store.Create(context.Background(), userID)
	tok, _ := tokens.Issue(userID, sid)
	_ = store.Delete(context.Background(), sid)

	_, err, _ := runMiddleware(t, SessionMiddleware(tokens, store, zerolog.Nop()), "Bearer "+tok)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_SubjectMismatch(t *testing.T) {
	store := newMemorySessionStore(time.Minute, time.Now)
	tokens := NewTokens(testSigningKey)

	sid, _ := store.Create(context.Background(), uuid.New())
	tok, _ := tokens.Issue(uuid.New(), sid)

	_, err, _ := runMiddleware(t, SessionMiddleware(tokens, store, zerolog.Nop()), "Bearer "+tok)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestUserIDFromContext_Empty(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != uuid.Nil {
		t.Errorf("expected uuid.Nil, got %s", got)
	}
	if got := SessionIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty session id, got %q", got)
	}
}
