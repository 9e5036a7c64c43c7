package treatment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPlanNotFound = errors.New("treatment plan not found")

// Plan is a generated treatment plan. Plans can be deleted but not edited.
type Plan struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Condition string    `json:"condition"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}
