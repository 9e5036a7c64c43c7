package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/middleware"
)

// auditWriteTimeout bounds each audit insert. The request has already been
// served when the entry is written, so it gets its own deadline.
const auditWriteTimeout = 3 * time.Second

const insertAuditSQL = `INSERT INTO audit_log (
	id, user_id, resource, resource_id, action, method, path, status,
	remote_ip, user_agent, request_id, recorded_at
) VALUES `

// PGAuditRecorder writes health data access entries to the audit_log table.
type PGAuditRecorder struct {
	pool *pgxpool.Pool
}

func NewPGAuditRecorder(pool *pgxpool.Pool) *PGAuditRecorder {
	return &PGAuditRecorder{pool: pool}
}

func (r *PGAuditRecorder) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, insertAuditSQL+`($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		auditArgs(entry)...)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// SQLAuditRecorder is the database/sql (SQLite) variant of PGAuditRecorder.
type SQLAuditRecorder struct {
	db *sql.DB
}

func NewSQLAuditRecorder(db *sql.DB) *SQLAuditRecorder {
	return &SQLAuditRecorder{db: db}
}

func (r *SQLAuditRecorder) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, insertAuditSQL+`(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		auditArgs(entry)...)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func auditArgs(e middleware.AuditEntry) []any {
	recorded := e.Timestamp
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	return []any{
		uuid.New().String(), e.UserID, e.Resource, e.ResourceID, e.Action,
		e.Method, e.Path, e.StatusCode, e.IPAddress, e.UserAgent, e.RequestID,
		recorded,
	}
}
