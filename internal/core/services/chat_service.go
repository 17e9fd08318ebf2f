package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// ChatServiceConfig holds chat rate limiting and history settings.
type ChatServiceConfig struct {
	MessagesPerSecond float64
	Burst             int
	HistoryLimit      int
}

// DefaultChatServiceConfig returns sensible chat limits.
func DefaultChatServiceConfig() ChatServiceConfig {
	return ChatServiceConfig{
		MessagesPerSecond: 1,
		Burst:             3,
		HistoryLimit:      50,
	}
}

// ChatService implements spectator chat: validation, per-sender rate
// limiting, persistence and broadcast.
type ChatService struct {
	repo        ports.ChatRepository
	broadcaster ports.EventBroadcaster
	limiter     *senderLimiter
	cfg         ChatServiceConfig
	logger      *slog.Logger
}

// Ensure implementation matches the interface.
var _ ports.ChatService = (*ChatService)(nil)

// NewChatService creates a new service for chat logic.
func NewChatService(
	repo ports.ChatRepository,
	broadcaster ports.EventBroadcaster,
	cfg ChatServiceConfig,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		repo:        repo,
		broadcaster: broadcaster,
		limiter:     newSenderLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.Burst),
		cfg:         cfg,
		logger:      logger.With("component", "chat_service"),
	}
}

// SendMessage validates, rate limits, persists and broadcasts one chat
// message. The broadcast carries the persisted entity, so every subscriber
// of the match room sees the same message id and timestamp.
func (s *ChatService) SendMessage(ctx context.Context, params ports.SendChatParams) (*domain.ChatMessage, error) {
	msg, err := domain.NewChatMessage(domain.ChatMessageParams{
		MatchID: params.MatchID,
		Sender:  params.Sender,
		Body:    params.Body,
	})
	if err != nil {
		return nil, err
	}

	if !s.limiter.Allow(msg.Sender) {
		return nil, apperrors.ErrRateLimited
	}

	stored, err := s.repo.Create(ctx, msg)
	if err != nil {
		s.logger.Error("failed to persist chat message",
			"match_id", msg.MatchID,
			"error", err,
		)
		return nil, apperrors.ErrInternal
	}

	event := domain.NewEvent(domain.NewChatMessagePayload(stored))
	if err := s.broadcaster.Emit(event); err != nil {
		s.logger.Warn("failed to broadcast chat message",
			"match_id", stored.MatchID,
			"error", err,
		)
	}

	return stored, nil
}

// RecentMessages returns up to limit recent messages for the match in
// chronological order. An empty match yields an empty, non-nil slice; only a
// storage failure yields an error.
func (s *ChatService) RecentMessages(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error) {
	if matchID <= 0 {
		return nil, apperrors.ErrMatchIDRequired
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.ListRecentByMatch(ctx, matchID, limit)
}

// senderLimiter rate limits chat sends per normalized sender address.
type senderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*senderEntry
	rate     rate.Limit
	burst    int
}

type senderEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSenderLimiter(r rate.Limit, burst int) *senderLimiter {
	sl := &senderLimiter{
		limiters: make(map[string]*senderEntry),
		rate:     r,
		burst:    burst,
	}

	// Drop limiters for senders idle longer than five minutes.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sl.mu.Lock()
			for sender, entry := range sl.limiters {
				if time.Since(entry.lastSeen) > 5*time.Minute {
					delete(sl.limiters, sender)
				}
			}
			sl.mu.Unlock()
		}
	}()

	return sl
}

// Allow checks if a send from the given sender is within limits.
func (sl *senderLimiter) Allow(sender string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	entry, exists := sl.limiters[sender]
	if !exists {
		entry = &senderEntry{limiter: rate.NewLimiter(sl.rate, sl.burst)}
		sl.limiters[sender] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}
