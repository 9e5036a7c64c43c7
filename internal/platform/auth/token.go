package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "healthai"

// MaxTokenAge bounds a token's lifetime regardless of session activity.
const MaxTokenAge = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the session the bearer token belongs to. The subject is the
// user id; the session id is checked against the SessionStore on every request.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	key []byte
	now func() time.Time
}

func NewTokens(signingKey []byte) *Tokens {
	return &Tokens{key: signingKey, now: time.Now}
}

func (t *Tokens) Issue(userID uuid.UUID, sessionID string) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(MaxTokenAge)),
		},
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
