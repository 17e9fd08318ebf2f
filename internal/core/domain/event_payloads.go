package domain

import (
	"fmt"
	"time"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// Payload shapes for every catalog event type. Field names match the wire
// contract consumed by the frontend; ids required for routing are validated
// by Validate before an event is accepted for broadcast.

// MatchStateChangedPayload carries a full state transition of a running match.
type MatchStateChangedPayload struct {
	MatchID      int64     `json:"matchId"`
	TournamentID int64     `json:"tournamentId"`
	State        string    `json:"state"`
	Turn         int       `json:"turn,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (MatchStateChangedPayload) eventType() EventType { return EventMatchStateChanged }

func (p MatchStateChangedPayload) Validate() error {
	return requireMatchIDs(p.MatchID, p.TournamentID)
}

// MatchActionSubmittedPayload is emitted when an agent submits a move.
type MatchActionSubmittedPayload struct {
	MatchID      int64     `json:"matchId"`
	TournamentID int64     `json:"tournamentId"`
	Agent        string    `json:"agent"`
	Action       string    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
}

func (MatchActionSubmittedPayload) eventType() EventType { return EventMatchActionSubmitted }

func (p MatchActionSubmittedPayload) Validate() error {
	return requireMatchIDs(p.MatchID, p.TournamentID)
}

// MatchCompletedPayload is emitted once per match, when a winner is decided.
type MatchCompletedPayload struct {
	MatchID      int64     `json:"matchId"`
	TournamentID int64     `json:"tournamentId"`
	Winner       string    `json:"winner"`
	Loser        string    `json:"loser,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (MatchCompletedPayload) eventType() EventType { return EventMatchCompleted }

func (p MatchCompletedPayload) Validate() error {
	return requireMatchIDs(p.MatchID, p.TournamentID)
}

// MatchCreatedPayload announces a new pairing within a tournament round.
type MatchCreatedPayload struct {
	MatchID      int64     `json:"matchId"`
	TournamentID int64     `json:"tournamentId"`
	Agents       []string  `json:"agents"`
	Round        int       `json:"round"`
	Timestamp    time.Time `json:"timestamp"`
}

func (MatchCreatedPayload) eventType() EventType { return EventMatchCreated }

func (p MatchCreatedPayload) Validate() error {
	return requireMatchIDs(p.MatchID, p.TournamentID)
}

// TournamentParticipantJoinedPayload is emitted when an agent registers.
type TournamentParticipantJoinedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Agent        string    `json:"agent"`
	Participants int       `json:"participants,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentParticipantJoinedPayload) eventType() EventType {
	return EventTournamentParticipantJoined
}

func (p TournamentParticipantJoinedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// TournamentRoundAdvancedPayload is emitted when bracket play moves on.
type TournamentRoundAdvancedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Round        int       `json:"round"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentRoundAdvancedPayload) eventType() EventType { return EventTournamentRoundAdvanced }

func (p TournamentRoundAdvancedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// TournamentStartedPayload is emitted when registration closes and play begins.
type TournamentStartedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Participants int       `json:"participants"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentStartedPayload) eventType() EventType { return EventTournamentStarted }

func (p TournamentStartedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// TournamentCompletedPayload is emitted when a champion is crowned.
type TournamentCompletedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Champion     string    `json:"champion"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentCompletedPayload) eventType() EventType { return EventTournamentCompleted }

func (p TournamentCompletedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// TournamentPausedPayload is emitted when an operator suspends play.
type TournamentPausedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentPausedPayload) eventType() EventType { return EventTournamentPaused }

func (p TournamentPausedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// TournamentResumedPayload is emitted when a paused tournament continues.
type TournamentResumedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Timestamp    time.Time `json:"timestamp"`
}

func (TournamentResumedPayload) eventType() EventType { return EventTournamentResumed }

func (p TournamentResumedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// EvolutionParametersChangedPayload reports a genetic parameter update for
// the agent population of a tournament.
type EvolutionParametersChangedPayload struct {
	TournamentID int64     `json:"tournamentId"`
	Generation   int       `json:"generation"`
	MutationRate float64   `json:"mutationRate"`
	Timestamp    time.Time `json:"timestamp"`
}

func (EvolutionParametersChangedPayload) eventType() EventType {
	return EventEvolutionParametersChanged
}

func (p EvolutionParametersChangedPayload) Validate() error {
	return requireTournamentID(p.TournamentID)
}

// AgentEloUpdatedPayload carries a rating change after a match result.
type AgentEloUpdatedPayload struct {
	Agent     string    `json:"agent"`
	OldRating int       `json:"oldRating"`
	NewRating int       `json:"newRating"`
	MatchID   int64     `json:"matchId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (AgentEloUpdatedPayload) eventType() EventType { return EventAgentEloUpdated }

func (p AgentEloUpdatedPayload) Validate() error {
	if p.Agent == "" {
		return fmt.Errorf("%w: agent", apperrors.ErrMissingRoutingID)
	}
	if !IsHexAddress(p.Agent) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidAddress, p.Agent)
	}
	return nil
}

// AgentChallengePayload is a direct agent-to-agent challenge, visible on the
// global feed only.
type AgentChallengePayload struct {
	Challenger string    `json:"challenger"`
	Opponent   string    `json:"opponent"`
	Wager      string    `json:"wager,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (AgentChallengePayload) eventType() EventType { return EventAgentChallenge }

func (p AgentChallengePayload) Validate() error { return nil }

// AgentMessagePayload is free-form agent-to-agent banter on the global feed.
type AgentMessagePayload struct {
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (AgentMessagePayload) eventType() EventType { return EventAgentMessage }

func (p AgentMessagePayload) Validate() error { return nil }

// ChatMessagePayload is a spectator chat message scoped to one match.
type ChatMessagePayload struct {
	ID        string    `json:"id"`
	MatchID   int64     `json:"matchId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (ChatMessagePayload) eventType() EventType { return EventChatMessage }

func (p ChatMessagePayload) Validate() error {
	if p.MatchID <= 0 {
		return fmt.Errorf("%w: matchId", apperrors.ErrMissingRoutingID)
	}
	return nil
}

// ChatErrorPayload reports a chat-level application error (rate limit,
// invalid input) scoped to one match. Consumers auto-expire it from any
// user-facing surface after a short interval.
type ChatErrorPayload struct {
	MatchID   int64     `json:"matchId"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (ChatErrorPayload) eventType() EventType { return EventChatError }

func (p ChatErrorPayload) Validate() error {
	if p.MatchID <= 0 {
		return fmt.Errorf("%w: matchId", apperrors.ErrMissingRoutingID)
	}
	return nil
}

func requireMatchIDs(matchID, tournamentID int64) error {
	if matchID <= 0 {
		return fmt.Errorf("%w: matchId", apperrors.ErrMissingRoutingID)
	}
	if tournamentID <= 0 {
		return fmt.Errorf("%w: tournamentId", apperrors.ErrMissingRoutingID)
	}
	return nil
}

func requireTournamentID(tournamentID int64) error {
	if tournamentID <= 0 {
		return fmt.Errorf("%w: tournamentId", apperrors.ErrMissingRoutingID)
	}
	return nil
}
