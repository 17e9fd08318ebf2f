package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// EventType identifies a real-time event. The set is closed: every type
// listed here has exactly one payload shape and one routing rule, and an
// event type without a routing rule is a defect, not a valid state.
type EventType string

const (
	EventMatchStateChanged    EventType = "match:stateChanged"
	EventMatchActionSubmitted EventType = "match:actionSubmitted"
	EventMatchCompleted       EventType = "match:completed"
	EventMatchCreated         EventType = "match:created"

	EventTournamentParticipantJoined EventType = "tournament:participantJoined"
	EventTournamentRoundAdvanced     EventType = "tournament:roundAdvanced"
	EventTournamentStarted           EventType = "tournament:started"
	EventTournamentCompleted         EventType = "tournament:completed"
	EventTournamentPaused            EventType = "tournament:paused"
	EventTournamentResumed           EventType = "tournament:resumed"

	EventEvolutionParametersChanged EventType = "evolution:parametersChanged"

	EventAgentEloUpdated EventType = "agent:eloUpdated"
	EventAgentChallenge  EventType = "agent:challenge"
	EventAgentMessage    EventType = "agent:message"

	EventChatMessage EventType = "chat:message"
	EventChatError   EventType = "chat:error"
)

// EventPayload is the sealed set of payload shapes. Implementations live in
// this package only; the unexported method keeps the catalog closed.
type EventPayload interface {
	// Validate checks the payload carries the identifiers its routing
	// family requires.
	Validate() error

	eventType() EventType
}

// Event is the unit of broadcast: an immutable (type, payload, emittedAt)
// triple, sent on the wire as {"event": ..., "payload": ..., "emittedAt": ...}.
type Event struct {
	Type      EventType    `json:"event"`
	Payload   EventPayload `json:"payload"`
	EmittedAt time.Time    `json:"emittedAt"`
}

// NewEvent builds an event for the given payload, stamping the emission time.
func NewEvent(payload EventPayload) Event {
	return Event{
		Type:      payload.eventType(),
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
}

// decode unmarshals raw into a payload of the concrete type T.
func decode[T EventPayload](t EventType, raw json.RawMessage) (EventPayload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// DecodePayload decodes a raw wire payload into the typed shape for the
// given event type. Unknown event types are rejected here so they never
// reach the router.
func DecodePayload(t EventType, raw json.RawMessage) (EventPayload, error) {
	switch t {
	case EventMatchStateChanged:
		return decode[MatchStateChangedPayload](t, raw)
	case EventMatchActionSubmitted:
		return decode[MatchActionSubmittedPayload](t, raw)
	case EventMatchCompleted:
		return decode[MatchCompletedPayload](t, raw)
	case EventMatchCreated:
		return decode[MatchCreatedPayload](t, raw)
	case EventTournamentParticipantJoined:
		return decode[TournamentParticipantJoinedPayload](t, raw)
	case EventTournamentRoundAdvanced:
		return decode[TournamentRoundAdvancedPayload](t, raw)
	case EventTournamentStarted:
		return decode[TournamentStartedPayload](t, raw)
	case EventTournamentCompleted:
		return decode[TournamentCompletedPayload](t, raw)
	case EventTournamentPaused:
		return decode[TournamentPausedPayload](t, raw)
	case EventTournamentResumed:
		return decode[TournamentResumedPayload](t, raw)
	case EventEvolutionParametersChanged:
		return decode[EvolutionParametersChangedPayload](t, raw)
	case EventAgentEloUpdated:
		return decode[AgentEloUpdatedPayload](t, raw)
	case EventAgentChallenge:
		return decode[AgentChallengePayload](t, raw)
	case EventAgentMessage:
		return decode[AgentMessagePayload](t, raw)
	case EventChatMessage:
		return decode[ChatMessagePayload](t, raw)
	case EventChatError:
		return decode[ChatErrorPayload](t, raw)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEventType, t)
	}
}

// DecodeEvent decodes a full server-to-client wire envelope.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type      EventType       `json:"event"`
		Payload   json.RawMessage `json:"payload"`
		EmittedAt time.Time       `json:"emittedAt"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	payload, err := DecodePayload(envelope.Type, envelope.Payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Type:      envelope.Type,
		Payload:   payload,
		EmittedAt: envelope.EmittedAt,
	}, nil
}
