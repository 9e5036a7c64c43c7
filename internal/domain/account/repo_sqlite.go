package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/db"
)

type userRepoSQLite struct{ db *sql.DB }

func NewUserRepoSQLite(sqlDB *sql.DB) UserRepository {
	return &userRepoSQLite{db: sqlDB}
}

func (r *userRepoSQLite) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Age, &u.Gender, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepoSQLite) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, age, gender, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		u.ID.String(), u.Username, u.PasswordHash, u.FullName, u.Age, u.Gender, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id.String()))
}

func (r *userRepoSQLite) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username))
}

func (r *userRepoSQLite) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id.String())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
