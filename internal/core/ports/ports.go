package ports

import (
	"context"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

// EventBroadcaster is the port producers use to push an event into the
// real-time fan-out. Emit never blocks the producer and never propagates
// delivery failures back to it.
type EventBroadcaster interface {
	Emit(event domain.Event) error
}

// ChatRepository defines the port for chat message persistence.
type ChatRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)

	// ListRecentByMatch returns up to limit messages for the match in
	// chronological order. A match with no messages yields an empty,
	// non-nil slice; only a storage failure yields an error.
	ListRecentByMatch(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error)
}

// SendChatParams defines the input for sending a spectator chat message.
type SendChatParams struct {
	MatchID int64
	Sender  string
	Body    string
}

// ChatService defines the port for spectator chat business logic.
type ChatService interface {
	SendMessage(ctx context.Context, params SendChatParams) (*domain.ChatMessage, error)
	RecentMessages(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error)
}

// EventService defines the port for ingesting producer-submitted events.
type EventService interface {
	Ingest(ctx context.Context, t domain.EventType, raw []byte) (domain.Event, error)
}
