package metrics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type metricRepoPG struct{ pool *pgxpool.Pool }

func NewMetricRepoPG(pool *pgxpool.Pool) MetricRepository {
	return &metricRepoPG{pool: pool}
}

const metricCols = `id, user_id, metric_type, value, unit, note, recorded_at`

func (r *metricRepoPG) scanMetric(row pgx.Row) (*HealthMetric, error) {
	var m HealthMetric
	err := row.Scan(&m.ID, &m.UserID, &m.MetricType, &m.Value, &m.Unit, &m.Note, &m.RecordedAt)
	return &m, err
}

func (r *metricRepoPG) Create(ctx context.Context, m *HealthMetric) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO health_metrics (id, user_id, metric_type, value, unit, note, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.UserID, m.MetricType, m.Value, m.Unit, m.Note, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (r *metricRepoPG) Query(ctx context.Context, userID uuid.UUID, metricType MetricType, tr TimeRange) ([]*HealthMetric, error) {
	query := `SELECT ` + metricCols + ` FROM health_metrics WHERE user_id = $1`
	args := []interface{}{userID}
	idx := 2

	if metricType != "" {
		query += fmt.Sprintf(` AND metric_type = $%d`, idx)
		args = append(args, metricType)
		idx++
	}
	if tr.From != nil {
		query += fmt.Sprintf(` AND recorded_at >= $%d`, idx)
		args = append(args, *tr.From)
		idx++
	}
	if tr.To != nil {
		query += fmt.Sprintf(` AND recorded_at <= $%d`, idx)
		args = append(args, *tr.To)
	}
	query += ` ORDER BY metric_type, recorded_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()
	items := []*HealthMetric{}
	for rows.Next() {
		m, err := r.scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *metricRepoPG) Types(ctx context.Context, userID uuid.UUID) ([]MetricType, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT metric_type FROM health_metrics WHERE user_id = $1 ORDER BY metric_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query metric types: %w", err)
	}
	defer rows.Close()
	types := []MetricType{}
	for rows.Next() {
		var t MetricType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *metricRepoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM health_metrics WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete metric: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMetricNotFound
	}
	return nil
}
