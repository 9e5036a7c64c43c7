package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

const messageCols = `id, user_id, kind, request, response, created_at`

func (r *messageRepoPG) scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.UserID, &m.Kind, &m.Request, &m.Response, &m.CreatedAt)
	return &m, err
}

func (r *messageRepoPG) collect(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()
	items := []*Message{}
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, user_id, kind, request, response, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.UserID, m.Kind, m.Request, m.Response, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *messageRepoPG) Recent(ctx context.Context, userID uuid.UUID, kind completion.Kind, n int) ([]*Message, error) {
	if n <= 0 {
		return []*Message{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+` FROM chat_messages
		WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC LIMIT $3`, userID, kind, n)
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

func (r *messageRepoPG) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+` FROM chat_messages
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
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

func (r *messageRepoPG) Clear(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
