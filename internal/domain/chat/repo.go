package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
)

// MessageRepository stores chat exchanges per user.
//
// Recent returns the newest n messages of one kind, oldest first. List pages
// backwards from the newest message (offset 0 is the latest page) and
// returns each page oldest first.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	Recent(ctx context.Context, userID uuid.UUID, kind completion.Kind, n int) ([]*Message, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error)
	Clear(ctx context.Context, userID uuid.UUID) (int, error)
}

func reverse(items []*Message) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
