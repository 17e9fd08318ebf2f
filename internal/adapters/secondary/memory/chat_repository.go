// Package memory provides in-memory secondary adapters used when the
// service runs without a database.
package memory

import (
	"context"
	"sync"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// defaultPerMatchCap bounds how many messages are retained per match.
const defaultPerMatchCap = 500

// ChatRepository keeps chat messages in memory, bounded per match.
type ChatRepository struct {
	mu       sync.RWMutex
	byMatch  map[int64][]*domain.ChatMessage
	perMatch int
}

var _ ports.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates an in-memory chat repository.
func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		byMatch:  make(map[int64][]*domain.ChatMessage),
		perMatch: defaultPerMatchCap,
	}
}

// Create stores a chat message, evicting the oldest once the per-match
// cap is reached. It returns the stored copy.
func (r *ChatRepository) Create(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	list := append(r.byMatch[msg.MatchID], &stored)
	if len(list) > r.perMatch {
		list = list[len(list)-r.perMatch:]
	}
	r.byMatch[msg.MatchID] = list

	out := stored
	return &out, nil
}

// ListRecentByMatch returns up to limit of the newest messages for a
// match, ordered oldest first.
func (r *ChatRepository) ListRecentByMatch(_ context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byMatch[matchID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}

	out := make([]*domain.ChatMessage, 0, len(list))
	for _, msg := range list {
		copied := *msg
		out = append(out, &copied)
	}
	return out, nil
}
