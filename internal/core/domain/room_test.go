package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

func TestRoomName(t *testing.T) {
	assert.Equal(t, "global", domain.GlobalRoom.Name())
	assert.Equal(t, "match:7", domain.MatchRoom(7).Name())
	assert.Equal(t, "tournament:3", domain.TournamentRoom(3).Name())
	assert.Equal(t,
		"agent:0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		domain.AgentRoom("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed").Name(),
	)
}

func TestAgentRoom_CaseVariantsAreEqual(t *testing.T) {
	lower := domain.AgentRoom("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	mixed := domain.AgentRoom("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.Equal(t, lower, mixed)
}

func TestNewRoom(t *testing.T) {
	t.Run("global ignores id", func(t *testing.T) {
		room, err := domain.NewRoom(domain.RoomKindGlobal, "")
		require.NoError(t, err)
		assert.Equal(t, domain.GlobalRoom, room)
	})

	t.Run("match with numeric id", func(t *testing.T) {
		room, err := domain.NewRoom(domain.RoomKindMatch, "42")
		require.NoError(t, err)
		assert.Equal(t, domain.MatchRoom(42), room)
	})

	t.Run("match with bad id", func(t *testing.T) {
		_, err := domain.NewRoom(domain.RoomKindMatch, "banana")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("match id is canonicalized", func(t *testing.T) {
		for _, id := range []string{"07", "+7", "007"} {
			room, err := domain.NewRoom(domain.RoomKindMatch, id)
			require.NoError(t, err, id)
			assert.Equal(t, domain.MatchRoom(7), room, id)
			assert.Equal(t, "match:7", room.Name(), id)
		}
	})

	t.Run("tournament id is canonicalized", func(t *testing.T) {
		room, err := domain.NewRoom(domain.RoomKindTournament, "03")
		require.NoError(t, err)
		assert.Equal(t, domain.TournamentRoom(3), room)
	})

	t.Run("tournament with non-positive id", func(t *testing.T) {
		_, err := domain.NewRoom(domain.RoomKindTournament, "0")
		require.Error(t, err)
	})

	t.Run("agent with invalid address", func(t *testing.T) {
		_, err := domain.NewRoom(domain.RoomKindAgent, "0x123")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	})

	t.Run("agent normalizes address", func(t *testing.T) {
		room, err := domain.NewRoom(domain.RoomKindAgent, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		assert.Equal(t, "agent:0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", room.Name())
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := domain.NewRoom("galaxy", "1")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}
