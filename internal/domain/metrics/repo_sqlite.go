package metrics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type metricRepoSQLite struct{ db *sql.DB }

func NewMetricRepoSQLite(sqlDB *sql.DB) MetricRepository {
	return &metricRepoSQLite{db: sqlDB}
}

func (r *metricRepoSQLite) Create(ctx context.Context, m *HealthMetric) error {
	m.ID = uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO health_metrics (id, user_id, metric_type, value, unit, note, recorded_at)
		VALUES (?,?,?,?,?,?,?)`,
		m.ID.String(), m.UserID.String(), string(m.MetricType), m.Value, m.Unit, m.Note, m.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (r *metricRepoSQLite) Query(ctx context.Context, userID uuid.UUID, metricType MetricType, tr TimeRange) ([]*HealthMetric, error) {
	query := `SELECT ` + metricCols + ` FROM health_metrics WHERE user_id = ?`
	args := []interface{}{userID.String()}

	if metricType != "" {
		query += ` AND metric_type = ?`
		args = append(args, string(metricType))
	}
	if tr.From != nil {
		query += ` AND recorded_at >= ?`
		args = append(args, tr.From.UTC())
	}
	if tr.To != nil {
		query += ` AND recorded_at <= ?`
		args = append(args, tr.To.UTC())
	}
	query += ` ORDER BY metric_type, recorded_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()
	items := []*HealthMetric{}
	for rows.Next() {
		var m HealthMetric
		if err := rows.Scan(&m.ID, &m.UserID, &m.MetricType, &m.Value, &m.Unit, &m.Note, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *metricRepoSQLite) Types(ctx context.Context, userID uuid.UUID) ([]MetricType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT metric_type FROM health_metrics WHERE user_id = ? ORDER BY metric_type`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query metric types: %w", err)
	}
	defer rows.Close()
	types := []MetricType{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, MetricType(t))
	}
	return types, rows.Err()
}

func (r *metricRepoSQLite) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM health_metrics WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete metric: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMetricNotFound
	}
	return nil
}
