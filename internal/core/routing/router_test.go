package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/routing"
)

func roomNames(rooms []domain.Room) []string {
	names := make([]string, len(rooms))
	for i, r := range rooms {
		names[i] = r.Name()
	}
	return names
}

func TestResolve_MatchFamily(t *testing.T) {
	evt := domain.NewEvent(domain.MatchCompletedPayload{
		MatchID:      7,
		TournamentID: 3,
		Winner:       "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	})

	rooms, err := routing.Resolve(evt)
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "match:7", "tournament:3"}, roomNames(rooms))
}

func TestResolve_TournamentFamily(t *testing.T) {
	payloads := []domain.EventPayload{
		domain.TournamentParticipantJoinedPayload{TournamentID: 3, Agent: "0xabc"},
		domain.TournamentRoundAdvancedPayload{TournamentID: 3, Round: 2},
		domain.TournamentStartedPayload{TournamentID: 3, Participants: 8},
		domain.TournamentCompletedPayload{TournamentID: 3, Champion: "0xabc"},
		domain.TournamentPausedPayload{TournamentID: 3},
		domain.TournamentResumedPayload{TournamentID: 3},
		domain.EvolutionParametersChangedPayload{TournamentID: 3, Generation: 5},
	}

	for _, p := range payloads {
		rooms, err := routing.Resolve(domain.NewEvent(p))
		require.NoError(t, err)
		assert.Equal(t, []string{"global", "tournament:3"}, roomNames(rooms))
	}
}

func TestResolve_AgentRoomIsCaseInsensitive(t *testing.T) {
	evt := domain.NewEvent(domain.AgentEloUpdatedPayload{
		Agent:     "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		OldRating: 1500,
		NewRating: 1516,
	})

	rooms, err := routing.Resolve(evt)
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "agent:0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}, roomNames(rooms))
}

func TestResolve_GlobalOnlyEvents(t *testing.T) {
	for _, p := range []domain.EventPayload{
		domain.AgentChallengePayload{Challenger: "0xabc", Opponent: "0xdef"},
		domain.AgentMessagePayload{From: "0xabc", Text: "gl"},
	} {
		rooms, err := routing.Resolve(domain.NewEvent(p))
		require.NoError(t, err)
		assert.Equal(t, []string{"global"}, roomNames(rooms))
	}
}

func TestResolve_ChatFamily(t *testing.T) {
	rooms, err := routing.Resolve(domain.NewEvent(domain.ChatMessagePayload{
		MatchID: 7,
		Sender:  "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		Text:    "gg",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "match:7"}, roomNames(rooms))

	rooms, err = routing.Resolve(domain.NewEvent(domain.ChatErrorPayload{
		MatchID: 7,
		Code:    "RATE_LIMITED",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "match:7"}, roomNames(rooms))
}

func TestResolve_GlobalAppearsExactlyOnce(t *testing.T) {
	payloads := []domain.EventPayload{
		domain.MatchStateChangedPayload{MatchID: 7, TournamentID: 3, State: "running"},
		domain.TournamentStartedPayload{TournamentID: 3},
		domain.AgentEloUpdatedPayload{Agent: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		domain.AgentMessagePayload{Text: "hi"},
		domain.ChatMessagePayload{MatchID: 7, Text: "hi"},
	}

	for _, p := range payloads {
		rooms, err := routing.Resolve(domain.NewEvent(p))
		require.NoError(t, err)

		count := 0
		for _, r := range rooms {
			if r == domain.GlobalRoom {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Equal(t, domain.GlobalRoom, rooms[0])
	}
}

func TestResolve_InvalidPayloadRejected(t *testing.T) {
	_, err := routing.Resolve(domain.NewEvent(domain.MatchStateChangedPayload{MatchID: 7}))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingRoutingID)
}

func TestResolve_NilPayloadRejected(t *testing.T) {
	_, err := routing.Resolve(domain.Event{Type: domain.EventMatchCompleted})
	require.Error(t, err)
}
