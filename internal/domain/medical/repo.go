package medical

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryRepository scopes every read and write to the owning user; an entry
// belonging to someone else is reported as ErrEntryNotFound.
type EntryRepository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Entry, error)
	// List returns entries oldest first.
	List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error)
	SetActive(ctx context.Context, userID, id uuid.UUID, active bool, at time.Time) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
