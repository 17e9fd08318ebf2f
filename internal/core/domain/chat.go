package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// MaxChatBodyLength bounds a single spectator chat message.
const MaxChatBodyLength = 500

// ChatMessage is a persisted spectator chat message for one match.
type ChatMessage struct {
	ID        uuid.UUID
	MatchID   int64
	Sender    string
	Body      string
	CreatedAt time.Time
}

// ChatMessageParams is the input for creating a chat message.
type ChatMessageParams struct {
	MatchID int64
	Sender  string
	Body    string
}

// NewChatMessage validates the input and builds a chat message entity.
// The sender is stored in normalized address form.
func NewChatMessage(params ChatMessageParams) (*ChatMessage, error) {
	if params.MatchID <= 0 {
		return nil, apperrors.ErrMatchIDRequired
	}

	sender := NormalizeAddress(params.Sender)
	if sender == "" {
		return nil, apperrors.ErrSenderRequired
	}
	if !IsHexAddress(sender) {
		return nil, apperrors.ErrInvalidAddress
	}

	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, apperrors.ErrChatBodyRequired
	}
	if len(body) > MaxChatBodyLength {
		return nil, apperrors.ErrChatBodyTooLong
	}

	return &ChatMessage{
		ID:        uuid.New(),
		MatchID:   params.MatchID,
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewChatMessagePayload builds the broadcast payload for a chat message.
func NewChatMessagePayload(msg *ChatMessage) ChatMessagePayload {
	return ChatMessagePayload{
		ID:        msg.ID.String(),
		MatchID:   msg.MatchID,
		Sender:    msg.Sender,
		Text:      msg.Body,
		Timestamp: msg.CreatedAt,
	}
}
