package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

type mockUserRepo struct{ store map[uuid.UUID]*User }

func newMockUserRepo() *mockUserRepo { return &mockUserRepo{store: make(map[uuid.UUID]*User)} }
func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, e := range m.store {
		if e.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	m.store[u.ID] = u
	return nil
}
func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.store[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}
func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.store { if u.Username == username { return u, nil } }; return nil, ErrUserNotFound
}
func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.store[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func newTestService(t *testing.T) (*Service, *auth.MemorySessionStore) {
	t.Helper()
	hasher, err := auth.NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	sessions := auth.NewMemorySessionStore(30 * time.Minute)
	t.Cleanup(sessions.Close)
	tokens := auth.NewTokens([]byte("test-secret-at-least-32-characters!!"))
	return NewService(newMockUserRepo(), hasher, sessions, tokens, 30*time.Minute, zerolog.Nop()), sessions
}

func validInput() RegisterInput {
	return RegisterInput{Username: "jane_doe", Password: "s3cret-pass", FullName: "Jane O'Doe", Age: 34, Gender: "Female"}
}

func TestRegister_Success(t *testing.T) {
	svc, _ := newTestService(t)
	u, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if u.Gender != "female" {
		t.Errorf("expected normalized gender, got %q", u.Gender)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret-pass" {
		t.Error("expected password to be hashed")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		field  string
		modify func(*RegisterInput)
	}{
		{"username", func(in *RegisterInput) { in.Username = "ab" }},
		{"username", func(in *RegisterInput) { in.Username = "bad name!" }},
		{"password", func(in *RegisterInput) { in.Password = "12345" }},
		{"password", func(in *RegisterInput) { in.Password = strings.Repeat("x", 129) }},
		{"full_name", func(in *RegisterInput) { in.FullName = "J" }},
		{"full_name", func(in *RegisterInput) { in.FullName = "Jane 2" }},
		{"age", func(in *RegisterInput) { in.Age = 0 }},
		{"age", func(in *RegisterInput) { in.Age = 151 }},
		{"gender", func(in *RegisterInput) { in.Gender = "robot" }},
	}
	for _, tt := range tests {
		in := validInput()
		tt.modify(&in)
		_, err := svc.Register(context.Background(), in)
		var ve *validate.Error
		if !errors.As(err, &ve) {
			t.Errorf("%+v: expected validation error, got %v", in, err)
			continue
		}
		if ve.Field != tt.field {
			t.Errorf("expected field %q, got %q", tt.field, ve.Field)
		}
	}
}

func TestAuthenticate_IdenticalFailures(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPass := svc.Authenticate(context.Background(), "jane_doe", "not-the-password")
	_, unknown := svc.Authenticate(context.Background(), "nobody", "not-the-password")
	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	svc, _ := newTestService(t)
	reg, _ := svc.Register(context.Background(), validInput())
	u, err := svc.Authenticate(context.Background(), " jane_doe ", "s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != reg.ID {
		t.Errorf("expected user %s, got %s", reg.ID, u.ID)
	}
}

func TestLoginLogout(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	sess, err := svc.Login(ctx, "jane_doe", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token == "" || sess.ExpiresIn != 1800 {
		t.Errorf("unexpected session %+v", sess)
	}
	if sessions.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", sessions.Count())
	}

	claims, err := svc.tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != sess.User.ID.String() {
		t.Errorf("token subject mismatch")
	}

	if err := svc.Logout(ctx, claims.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := sessions.Touch(ctx, claims.SessionID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("expected session to be gone, got %v", err)
	}
}

func TestLogin_WrongPasswordCreatesNoSession(t *testing.T) {
	svc, sessions := newTestService(t)
	svc.Register(context.Background(), validInput())
	if _, err := svc.Login(context.Background(), "jane_doe", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.Count() != 0 {
		t.Errorf("expected no sessions, got %d", sessions.Count())
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, _ := svc.Register(ctx, validInput())

	err := svc.ChangePassword(ctx, u.ID, "wrong-current", "brand-new-pass")
	var ve *validate.Error
	if !errors.As(err, &ve) || ve.Field != "current_password" {
		t.Errorf("expected current_password error, got %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "s3cret-pass", "123"); !validate.IsValidation(err) {
		t.Errorf("expected validation error for short password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "s3cret-pass", "brand-new-pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "jane_doe", "brand-new-pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "jane_doe", "s3cret-pass"); err == nil {
		t.Error("old password still accepted")
	}
}

func TestCompletionProfile(t *testing.T) {
	svc, _ := newTestService(t)
	u, _ := svc.Register(context.Background(), validInput())
	p, err := svc.CompletionProfile(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Age != 34 || p.Gender != "female" {
		t.Errorf("unexpected profile %+v", p)
	}
	if _, err := svc.CompletionProfile(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
