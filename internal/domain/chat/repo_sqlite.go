package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
)

type messageRepoSQLite struct{ db *sql.DB }

func NewMessageRepoSQLite(sqlDB *sql.DB) MessageRepository {
	return &messageRepoSQLite{db: sqlDB}
}

func (r *messageRepoSQLite) collect(rows *sql.Rows) ([]*Message, error) {
	defer rows.Close()
	items := []*Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Request, &m.Response, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *messageRepoSQLite) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, kind, request, response, created_at)
		VALUES (?,?,?,?,?,?)`,
		m.ID.String(), m.UserID.String(), string(m.Kind), m.Request, m.Response, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *messageRepoSQLite) Recent(ctx context.Context, userID uuid.UUID, kind completion.Kind, n int) ([]*Message, error) {
	if n <= 0 {
		return []*Message{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageCols+` FROM chat_messages
		WHERE user_id = ? AND kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID.String(), string(kind), n)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	reverse(items)
	return items, nil
}

func (r *messageRepoSQLite) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE user_id = ?`, userID.String()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageCols+` FROM chat_messages
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, userID.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	reverse(items)
	return items, total, nil
}

func (r *messageRepoSQLite) Clear(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID.String())
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
