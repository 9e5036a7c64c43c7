package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestUserRepoSQLite_Create(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "jane_doe", "hash", "Jane Doe", 34, "female", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	u := &User{Username: "jane_doe", PasswordHash: "hash", FullName: "Jane Doe", Age: 34, Gender: "female"}
	if err := NewUserRepoSQLite(sqlDB).Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == uuid.Nil || u.CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserRepoSQLite_GetByUsername(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name", "age", "gender", "created_at"}).
		AddRow(id.String(), "jane_doe", "hash", "Jane Doe", 34, "female", created)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \?`).WithArgs("jane_doe").WillReturnRows(rows)

	u, err := NewUserRepoSQLite(sqlDB).GetByUsername(context.Background(), "jane_doe")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u.ID != id || u.Age != 34 || !u.CreatedAt.Equal(created) {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestUserRepoSQLite_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name", "age", "gender", "created_at"}))
	if _, err := NewUserRepoSQLite(sqlDB).GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	mock.ExpectExec(`UPDATE users SET password_hash`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewUserRepoSQLite(sqlDB).UpdatePassword(context.Background(), uuid.New(), "h"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
