package realtimeclient

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

func TestStore_RingEvictsOldest(t *testing.T) {
	store := NewStore(3)

	for i := 0; i < 4; i++ {
		store.Record(domain.NewEvent(domain.AgentMessagePayload{Text: fmt.Sprintf("msg %d", i)}))
	}

	events := store.RecentEvents()
	require.Len(t, events, 3)

	// Oldest dropped, newest last.
	assert.Equal(t, "msg 1", events[0].Payload.(domain.AgentMessagePayload).Text)
	assert.Equal(t, "msg 3", events[2].Payload.(domain.AgentMessagePayload).Text)
}

func TestStore_RecentEventsReturnsCopy(t *testing.T) {
	store := NewStore(5)
	store.Record(domain.NewEvent(domain.AgentMessagePayload{Text: "one"}))

	events := store.RecentEvents()
	events[0] = domain.Event{}

	again := store.RecentEvents()
	require.Len(t, again, 1)
	assert.Equal(t, domain.EventAgentMessage, again[0].Type)
}

func TestStore_RoomMembership(t *testing.T) {
	store := NewStore(5)

	assert.False(t, store.IsSubscribed("match:7"))

	store.SetRoom("match:7", true)
	assert.True(t, store.IsSubscribed("match:7"))
	assert.Contains(t, store.Rooms(), "match:7")

	store.SetRoom("match:7", false)
	assert.False(t, store.IsSubscribed("match:7"))
	assert.Empty(t, store.Rooms())
}

func TestStore_ChatErrorAutoExpires(t *testing.T) {
	store := NewStore(5)
	store.errorTTL = 20 * time.Millisecond

	store.Record(domain.NewEvent(domain.ChatErrorPayload{
		MatchID: 7,
		Code:    "RATE_LIMITED",
		Message: "slow down",
	}))

	ce, ok := store.ChatError(7)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", ce.Code)

	require.Eventually(t, func() bool {
		_, ok := store.ChatError(7)
		return !ok
	}, time.Second, 5*time.Millisecond, "chat error did not expire")
}

func TestStore_NewErrorReplacesPending(t *testing.T) {
	store := NewStore(5)
	store.errorTTL = 50 * time.Millisecond

	store.Record(domain.NewEvent(domain.ChatErrorPayload{MatchID: 7, Code: "RATE_LIMITED"}))
	store.Record(domain.NewEvent(domain.ChatErrorPayload{MatchID: 7, Code: "INVALID_INPUT"}))

	ce, ok := store.ChatError(7)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", ce.Code)
}

func TestStore_CloseStopsTimersAndFreezes(t *testing.T) {
	store := NewStore(5)
	store.errorTTL = time.Hour

	store.Record(domain.NewEvent(domain.ChatErrorPayload{MatchID: 7, Code: "RATE_LIMITED"}))
	store.Close()

	_, ok := store.ChatError(7)
	assert.False(t, ok)

	// Mutations after close are ignored.
	store.Record(domain.NewEvent(domain.AgentMessagePayload{Text: "late"}))
	store.SetRoom("match:7", true)
	store.SetStatus(StatusConnected)

	assert.Empty(t, store.RecentEvents())
	assert.False(t, store.IsSubscribed("match:7"))
	assert.NotEqual(t, StatusConnected, store.Status())

	// Close is idempotent.
	store.Close()
}
