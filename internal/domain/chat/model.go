package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
)

// Message is one persisted exchange with the assistant. Messages are never
// edited; they live until the user clears their history.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      completion.Kind `json:"kind"`
	Request   string          `json:"request"`
	Response  string          `json:"response"`
	CreatedAt time.Time       `json:"created_at"`
}

func (m *Message) turn() completion.Turn {
	return completion.Turn{Request: m.Request, Response: m.Response}
}
