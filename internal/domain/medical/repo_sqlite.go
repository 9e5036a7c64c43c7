package medical

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type entryRepoSQLite struct{ db *sql.DB }

func NewEntryRepoSQLite(sqlDB *sql.DB) EntryRepository {
	return &entryRepoSQLite{db: sqlDB}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.Category, &e.Name, &e.Detail, &e.Severity, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *entryRepoSQLite) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	e.UpdatedAt = e.CreatedAt
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medical_entries (id, user_id, category, name, detail, severity, active, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID.String(), e.UserID.String(), string(e.Category), e.Name, e.Detail, e.Severity, e.Active, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medical entry: %w", err)
	}
	return nil
}

func (r *entryRepoSQLite) GetByID(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM medical_entries WHERE id = ? AND user_id = ?`, id.String(), userID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medical entry: %w", err)
	}
	return e, nil
}

func (r *entryRepoSQLite) List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE user_id = ?`
	args := []interface{}{userID.String()}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	if f.Active != nil {
		where += ` AND active = ?`
		args = append(args, *f.Active)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medical_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medical entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+entryCols+` FROM medical_entries`+where+` ORDER BY created_at, rowid LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medical entries: %w", err)
	}
	defer rows.Close()
	items := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan medical entry: %w", err)
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *entryRepoSQLite) SetActive(ctx context.Context, userID, id uuid.UUID, active bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE medical_entries SET active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		active, at.UTC(), id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("update medical entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *entryRepoSQLite) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medical_entries WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete medical entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
