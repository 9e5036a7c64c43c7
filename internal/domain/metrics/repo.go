package metrics

import (
	"context"

	"github.com/google/uuid"
)

// MetricRepository stores measurements. Every call is scoped to a user.
// Query with an empty metricType returns all types ordered by type, then
// recorded_at.
type MetricRepository interface {
	Create(ctx context.Context, m *HealthMetric) error
	Query(ctx context.Context, userID uuid.UUID, metricType MetricType, r TimeRange) ([]*HealthMetric, error)
	Types(ctx context.Context, userID uuid.UUID) ([]MetricType, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
