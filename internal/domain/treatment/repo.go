package treatment

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository scopes every read and delete to the owning user; a plan
// belonging to someone else is reported as ErrPlanNotFound.
type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Plan, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Plan, int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
