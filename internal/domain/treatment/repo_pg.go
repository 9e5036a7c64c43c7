package treatment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

const planCols = `id, user_id, title, condition, plan, created_at`

func (r *planRepoPG) scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Condition, &p.Plan, &p.CreatedAt)
	return &p, err
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO treatment_plans (id, user_id, title, condition, plan, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.UserID, p.Title, p.Condition, p.Plan, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert treatment plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Plan, error) {
	p, err := r.scanPlan(r.pool.QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get treatment plan: %w", err)
	}
	return p, nil
}

func (r *planRepoPG) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM treatment_plans WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count treatment plans: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+planCols+` FROM treatment_plans
		WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list treatment plans: %w", err)
	}
	defer rows.Close()
	items := []*Plan{}
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan treatment plan: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *planRepoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatment_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete treatment plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}
