package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// ChatRepository is the secondary adapter for chat message persistence.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// Ensure ChatRepository implements the ports.ChatRepository interface.
var _ ports.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new chat repository.
func NewChatRepository(pool *pgxpool.Pool) ports.ChatRepository {
	return &ChatRepository{pool: pool}
}

// Create persists a new chat message and returns the stored row.
func (r *ChatRepository) Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (id, match_id, sender, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, match_id, sender, body, created_at
	`

	var stored domain.ChatMessage
	err := r.pool.QueryRow(ctx, query, msg.ID, msg.MatchID, msg.Sender, msg.Body, msg.CreatedAt).
		Scan(&stored.ID, &stored.MatchID, &stored.Sender, &stored.Body, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListRecentByMatch returns up to limit of the most recent messages for a
// match, ordered oldest first.
func (r *ChatRepository) ListRecentByMatch(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, match_id, sender, body, created_at
		FROM (
			SELECT id, match_id, sender, body, created_at
			FROM chat_messages
			WHERE match_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, matchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.ChatMessage, 0, limit)
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.Sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
