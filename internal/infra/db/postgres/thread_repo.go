package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

var _ repository.ThreadRepository = (*ThreadRepo)(nil)

// ThreadRepo is the append-only message history checkpoint; ordering within
// a thread comes from the serial primary key.
type ThreadRepo struct {
	pool *pgxpool.Pool
}

func NewThreadRepo(pool *pgxpool.Pool) *ThreadRepo {
	return &ThreadRepo{pool: pool}
}

func (r *ThreadRepo) Append(ctx context.Context, threadID string, msgs []model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	const q = `
INSERT INTO thread_messages (thread_id, role, content, created_at)
VALUES ($1,$2,$3,COALESCE($4,NOW()));`
	for _, m := range msgs {
		if _, err := r.pool.Exec(ctx, q, threadID, m.Role, m.Content, m.Timestamp); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}
	return nil
}

func (r *ThreadRepo) Messages(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	const q = `
SELECT role, content, created_at
FROM thread_messages WHERE thread_id = $1 ORDER BY id;`
	rows, err := r.pool.Query(ctx, q, threadID)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		m := model.ChatMessage{ThreadID: threadID}
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
