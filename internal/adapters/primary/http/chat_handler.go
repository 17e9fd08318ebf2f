package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// ChatHandler handles HTTP requests for match chat history
type ChatHandler struct {
	chatService  ports.ChatService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService ports.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
	}
}

// RecentMessages handles GET /api/v1/matches/{matchID}/chat
func (h *ChatHandler) RecentMessages(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseInt(chi.URLParam(r, "matchID"), 10, 64)
	if err != nil || matchID <= 0 {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Invalid match ID"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Invalid limit parameter"))
			return
		}
	}

	messages, err := h.chatService.RecentMessages(r.Context(), matchID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, messages)
}
