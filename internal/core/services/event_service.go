package services

import (
	"context"
	"log/slog"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// EventService accepts producer-submitted events at the catalog boundary:
// it decodes the raw payload into the typed shape, validates the routing
// ids, and hands the event to the broadcaster. Unknown event types and
// malformed payloads are rejected here and never reach the router.
type EventService struct {
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.EventService = (*EventService)(nil)

// NewEventService creates a new ingest service.
func NewEventService(broadcaster ports.EventBroadcaster, logger *slog.Logger) *EventService {
	return &EventService{
		broadcaster: broadcaster,
		logger:      logger.With("component", "event_service"),
	}
}

// Ingest validates and broadcasts one producer event.
func (s *EventService) Ingest(ctx context.Context, t domain.EventType, raw []byte) (domain.Event, error) {
	payload, err := domain.DecodePayload(t, raw)
	if err != nil {
		return domain.Event{}, err
	}

	if err := payload.Validate(); err != nil {
		return domain.Event{}, apperrors.NewValidationError(err, "event payload is missing required routing ids", nil)
	}

	event := domain.NewEvent(payload)
	if err := s.broadcaster.Emit(event); err != nil {
		s.logger.Error("failed to emit event", "event", t, "error", err)
		return domain.Event{}, apperrors.NewInternalError(err)
	}

	s.logger.Debug("event ingested", "event", t)
	return event, nil
}
