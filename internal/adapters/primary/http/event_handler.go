package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// EventHandler handles HTTP requests for event ingestion
type EventHandler struct {
	eventService ports.EventService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService ports.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
	}
}

// ingestRequest is the wire format for POST /api/v1/events.
type ingestRequest struct {
	Event   domain.EventType `json:"event"`
	Payload json.RawMessage  `json:"payload"`
}

// Ingest handles POST /api/v1/events
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Invalid request body"))
		return
	}

	if req.Event == "" {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Event type is required"))
		return
	}
	if len(req.Payload) == 0 {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Event payload is required"))
		return
	}

	event, err := h.eventService.Ingest(r.Context(), req.Event, req.Payload)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("event accepted",
		"request_id", GetRequestID(r.Context()),
		"event", event.Type,
	)

	WriteAccepted(w, map[string]any{
		"event":     event.Type,
		"emittedAt": event.EmittedAt,
	})
}
