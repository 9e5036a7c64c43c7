package db

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/middleware"
)

func TestSQLAuditRecorder_RecordAccess(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	entry := middleware.AuditEntry{
		UserID:     "b6f1c1de-0000-4000-8000-000000000001",
		Resource:   "metrics",
		ResourceID: "",
		Action:     "read",
		IPAddress:  "10.0.0.7",
		UserAgent:  "curl/8.0",
		Path:       "/api/v1/metrics/export",
		Method:     http.MethodGet,
		Timestamp:  at,
		RequestID:  "req-1",
		StatusCode: http.StatusOK,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs(sqlmock.AnyArg(), entry.UserID, "metrics", "", "read", http.MethodGet,
			"/api/v1/metrics/export", http.StatusOK, "10.0.0.7", "curl/8.0", "req-1", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := NewSQLAuditRecorder(sqlDB).RecordAccess(entry); err != nil {
		t.Fatalf("RecordAccess() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLAuditRecorder_InsertError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnError(errors.New("disk full"))

	err = NewSQLAuditRecorder(sqlDB).RecordAccess(middleware.AuditEntry{Resource: "chat", Action: "create"})
	if err == nil {
		t.Fatal("expected an error when the insert fails")
	}
}

func TestSQLAuditRecorder_WritesMigratedTable(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()

	files, err := Migrations(SQLite)
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if _, err := NewSQLiteMigrator(sqlDB, files).Up(ctx); err != nil {
		t.Fatalf("Up() error: %v", err)
	}

	rec := NewSQLAuditRecorder(sqlDB)
	for _, path := range []string{"/api/v1/chat/messages", "/api/v1/medical/entries/42"} {
		err := rec.RecordAccess(middleware.AuditEntry{
			UserID:     "u-1",
			Resource:   "chat",
			Action:     "create",
			Path:       path,
			Method:     http.MethodPost,
			StatusCode: http.StatusCreated,
		})
		if err != nil {
			t.Fatalf("RecordAccess(%s) error: %v", path, err)
		}
	}

	var n int
	if err := sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log WHERE user_id = 'u-1'`).Scan(&n); err != nil {
		t.Fatalf("count audit_log: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 audit rows, got %d", n)
	}
}
