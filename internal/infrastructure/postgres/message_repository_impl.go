package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
	"github.com/oksasatya/go-realtime-relay/internal/domain/repository"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Insert(ctx context.Context, m *entity.ChatMessage) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (user_id, body)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, m.SenderID, m.Body)

	return row.Scan(&m.ID, &m.CreatedAt)
}

// Recent returns the newest `limit` messages reordered oldest-first, the shape
// a freshly bound connection replays its backlog in.
func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]entity.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.user_id, u.firstname || ' ' || u.lastname, m.body, m.created_at
		FROM (
			SELECT id, user_id, body, created_at
			FROM messages
			ORDER BY created_at DESC
			LIMIT $1
		) m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.created_at ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ChatMessage
	for rows.Next() {
		var m entity.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ repository.MessageRepository = (*MessageRepository)(nil)
