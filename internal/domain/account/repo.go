package account

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository stores user accounts. Create assigns ID and CreatedAt and
// returns ErrUsernameTaken on a duplicate username; lookups return
// ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}
