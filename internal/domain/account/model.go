package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// User is immutable after registration except for PasswordHash.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	CreatedAt    time.Time `json:"created_at"`
}

// CompletionProfile is the part of the user that personalizes prompts.
func (u *User) CompletionProfile() *completion.Profile {
	return &completion.Profile{Age: u.Age, Gender: u.Gender}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// Session is returned by a successful login. ExpiresIn is the idle timeout
// in seconds; every authenticated request restarts it.
type Session struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	User      *User  `json:"user"`
}
