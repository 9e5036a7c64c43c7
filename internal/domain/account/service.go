package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

type Service struct {
	users    UserRepository
	hasher   *auth.Hasher
	sessions auth.SessionStore
	tokens   *auth.Tokens
	idle     time.Duration
	logger   zerolog.Logger
}

func NewService(users UserRepository, hasher *auth.Hasher, sessions auth.SessionStore, tokens *auth.Tokens, idle time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		tokens:   tokens,
		idle:     idle,
		logger:   logger.With().Str("component", "account").Logger(),
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username, err := validate.Username(in.Username)
	if err != nil {
		return nil, err
	}
	if err := validate.Password("password", in.Password); err != nil {
		return nil, err
	}
	fullName, err := validate.FullName(in.FullName)
	if err != nil {
		return nil, err
	}
	if err := validate.Age(in.Age); err != nil {
		return nil, err
	}
	gender, err := validate.Gender(in.Gender)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Age:          in.Age,
		Gender:       gender,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return u, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown username and
// a wrong password, after spending the same bcrypt effort on each.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.CompareDummy(password)
		s.logger.Info().Str("reason", "unknown_username").Msg("login failed")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		evt := s.logger.Info()
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			evt = s.logger.Error().Err(err)
		}
		evt.Str("user_id", u.ID.String()).Str("reason", "wrong_password").Msg("login failed")
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and opens a new server-side session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	sid, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(u.ID, sid)
	if err != nil {
		_ = s.sessions.Delete(ctx, sid)
		return nil, err
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &Session{Token: token, ExpiresIn: int(s.idle.Seconds()), User: u}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// CompletionProfile looks up the personalization sent with symptom checks
// and treatment plans.
func (s *Service) CompletionProfile(ctx context.Context, userID uuid.UUID) (*completion.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.CompletionProfile(), nil
}

// ChangePassword requires the current password. Existing sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if current == "" {
		return validate.Errorf("current_password", "is required")
	}
	if err := validate.Password("new_password", next); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return validate.Errorf("current_password", "is incorrect")
		}
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("password changed")
	return nil
}
