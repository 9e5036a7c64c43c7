package treatment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type planRepoSQLite struct{ db *sql.DB }

func NewPlanRepoSQLite(sqlDB *sql.DB) PlanRepository {
	return &planRepoSQLite{db: sqlDB}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row scanner) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Condition, &p.Plan, &p.CreatedAt)
	return &p, err
}

func (r *planRepoSQLite) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO treatment_plans (id, user_id, title, condition, plan, created_at)
		VALUES (?,?,?,?,?,?)`,
		p.ID.String(), p.UserID.String(), p.Title, p.Condition, p.Plan, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert treatment plan: %w", err)
	}
	return nil
}

func (r *planRepoSQLite) GetByID(ctx context.Context, userID, id uuid.UUID) (*Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE id = ? AND user_id = ?`, id.String(), userID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get treatment plan: %w", err)
	}
	return p, nil
}

func (r *planRepoSQLite) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM treatment_plans WHERE user_id = ?`, userID.String()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count treatment plans: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+planCols+` FROM treatment_plans
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, userID.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list treatment plans: %w", err)
	}
	defer rows.Close()
	items := []*Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan treatment plan: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *planRepoSQLite) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM treatment_plans WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete treatment plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlanNotFound
	}
	return nil
}
