package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	SessionIDKey contextKey = "session_id"
)

// SessionMiddleware authenticates bearer tokens against the session store.
// A valid token whose session has expired or been deleted is rejected. On
// success the session's idle timer restarts and the user id is placed on the
// request context for handlers to pass to services.
func SessionMiddleware(tokens *Tokens, sessions SessionStore, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			userID, err := sessions.Touch(ctx, claims.SessionID)
			if err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
				}
				logger.Error().Err(err).Msg("session lookup failed")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
			}
			if userID.String() != claims.Subject {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx = WithSession(ctx, userID, claims.SessionID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", userID.String())

			return next(c)
		}
	}
}

// WithSession returns a context carrying the authenticated user and session.
func WithSession(ctx context.Context, userID uuid.UUID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// UserIDFromContext returns uuid.Nil when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return uid
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}
