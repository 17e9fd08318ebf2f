// Package routing maps catalog events to the rooms they must reach.
package routing

import (
	"fmt"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// Resolve returns the ordered set of rooms the event must reach. It is
// deterministic and side-effect-free: global always comes first, followed by
// the rooms of the event's family. The switch is exhaustive over the payload
// catalog; a payload with no case here is a routing defect surfaced as an
// error, never a silent global-only default.
func Resolve(evt domain.Event) ([]domain.Room, error) {
	if evt.Payload == nil {
		return nil, fmt.Errorf("%w: %s has no payload", apperrors.ErrMissingRoutingID, evt.Type)
	}
	if err := evt.Payload.Validate(); err != nil {
		return nil, err
	}

	rooms := []domain.Room{domain.GlobalRoom}

	switch p := evt.Payload.(type) {
	case domain.MatchStateChangedPayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID), domain.TournamentRoom(p.TournamentID))
	case domain.MatchActionSubmittedPayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID), domain.TournamentRoom(p.TournamentID))
	case domain.MatchCompletedPayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID), domain.TournamentRoom(p.TournamentID))
	case domain.MatchCreatedPayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID), domain.TournamentRoom(p.TournamentID))

	case domain.TournamentParticipantJoinedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.TournamentRoundAdvancedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.TournamentStartedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.TournamentCompletedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.TournamentPausedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.TournamentResumedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))
	case domain.EvolutionParametersChangedPayload:
		rooms = append(rooms, domain.TournamentRoom(p.TournamentID))

	case domain.AgentEloUpdatedPayload:
		rooms = append(rooms, domain.AgentRoom(p.Agent))

	case domain.AgentChallengePayload, domain.AgentMessagePayload:
		// Global feed only.

	case domain.ChatMessagePayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID))
	case domain.ChatErrorPayload:
		rooms = append(rooms, domain.MatchRoom(p.MatchID))

	default:
		return nil, fmt.Errorf("%w: no routing rule for %T", apperrors.ErrUnknownEventType, evt.Payload)
	}

	return rooms, nil
}
