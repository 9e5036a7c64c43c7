package medical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

const entryCols = `id, user_id, category, name, detail, severity, active, created_at, updated_at`

func (r *entryRepoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.Category, &e.Name, &e.Detail, &e.Severity, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *entryRepoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	e.UpdatedAt = e.CreatedAt
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medical_entries (id, user_id, category, name, detail, severity, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.UserID, string(e.Category), e.Name, e.Detail, e.Severity, e.Active, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medical entry: %w", err)
	}
	return nil
}

func (r *entryRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	e, err := r.scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM medical_entries WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medical entry: %w", err)
	}
	return e, nil
}

func (r *entryRepoPG) List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{userID}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		where += fmt.Sprintf(` AND active = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medical_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medical entries: %w", err)
	}

	args = append(args, limit, offset)
	query := `SELECT ` + entryCols + ` FROM medical_entries` + where +
		fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medical entries: %w", err)
	}
	defer rows.Close()
	items := []*Entry{}
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan medical entry: %w", err)
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *entryRepoPG) SetActive(ctx context.Context, userID, id uuid.UUID, active bool, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE medical_entries SET active = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`,
		active, at.UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("update medical entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *entryRepoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medical_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete medical entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
