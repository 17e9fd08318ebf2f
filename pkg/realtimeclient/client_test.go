package realtimeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

// testServer is a minimal websocket endpoint that records client messages
// and can push event envelopes.
type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn

	messages chan outboundMessage
	connects chan *websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		messages: make(chan outboundMessage, 64),
		connects: make(chan *websocket.Conn, 8),
	}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()
		ts.connects <- conn

		for {
			var msg outboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ts.messages <- msg
		}
	}))
	t.Cleanup(ts.close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) push(t *testing.T, evt domain.Event) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.conns, "no connected client")
	require.NoError(t, ts.conns[len(ts.conns)-1].WriteJSON(evt))
}

func (ts *testServer) pushRaw(t *testing.T, data []byte) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.conns, "no connected client")
	require.NoError(t, ts.conns[len(ts.conns)-1].WriteMessage(websocket.TextMessage, data))
}

func (ts *testServer) dropConnections() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, conn := range ts.conns {
		_ = conn.Close()
	}
	ts.conns = nil
}

func (ts *testServer) close() {
	ts.dropConnections()
	ts.srv.Close()
}

func waitConn(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.connects:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func waitMessage(t *testing.T, ts *testServer) outboundMessage {
	t.Helper()
	select {
	case msg := <-ts.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return outboundMessage{}
	}
}

func waitStatus(t *testing.T, ch <-chan Status, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		}
	}
}

func newTestClient(t *testing.T, ts *testServer, store *Store) (*Client, <-chan Status) {
	t.Helper()
	client, err := New(Config{
		URL:            ts.url(),
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Store:          store,
	})
	require.NoError(t, err)

	statusCh := make(chan Status, 16)
	client.OnStatusChange(func(s Status) { statusCh <- s })
	t.Cleanup(client.Close)
	return client, statusCh
}

func TestClient_ConnectAndDispatch(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	received := make(chan domain.Event, 1)
	client.Subscribe(domain.EventTournamentStarted, func(evt domain.Event) {
		received <- evt
	})

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	ts.push(t, domain.NewEvent(domain.TournamentStartedPayload{TournamentID: 3, Participants: 8}))

	select {
	case evt := <-received:
		assert.Equal(t, domain.EventTournamentStarted, evt.Type)
		payload := evt.Payload.(domain.TournamentStartedPayload)
		assert.Equal(t, int64(3), payload.TournamentID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestClient_NonEventFramesAreSkipped(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	received := make(chan domain.Event, 2)
	client.Subscribe(domain.EventTournamentStarted, func(evt domain.Event) {
		received <- evt
	})

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	// Keep-alive replies have no event name and must not reach listeners
	// or break the read loop for the catalog event behind them.
	ts.pushRaw(t, []byte(`{"type":"pong"}`))
	ts.push(t, domain.NewEvent(domain.TournamentStartedPayload{TournamentID: 3, Participants: 8}))

	select {
	case evt := <-received:
		assert.Equal(t, domain.EventTournamentStarted, evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
	select {
	case evt := <-received:
		t.Fatalf("unexpected extra dispatch: %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_SubscriptionIntentIssuesJoin(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	require.NoError(t, client.SetSubscriptionIntent(domain.RoomKindMatch, "7", true))

	msg := waitMessage(t, ts)
	assert.Equal(t, "subscribe", msg.Type)

	var req roomRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, domain.RoomKindMatch, req.Kind)
	assert.Equal(t, "7", req.ID)

	// Withdrawing the intent issues a leave.
	require.NoError(t, client.SetSubscriptionIntent(domain.RoomKindMatch, "7", false))
	msg = waitMessage(t, ts)
	assert.Equal(t, "unsubscribe", msg.Type)
}

func TestClient_IntentBeforeConnectIsAppliedOnConnect(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	require.NoError(t, client.SetSubscriptionIntent(domain.RoomKindTournament, "3", true))

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	msg := waitMessage(t, ts)
	assert.Equal(t, "subscribe", msg.Type)

	var req roomRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, domain.RoomKindTournament, req.Kind)
}

func TestClient_ReconnectReissuesJoins(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	require.NoError(t, client.SetSubscriptionIntent(domain.RoomKindMatch, "7", true))
	msg := waitMessage(t, ts)
	require.Equal(t, "subscribe", msg.Type)

	// Drop the transport; the client must reconnect and re-join without
	// any caller action.
	ts.dropConnections()
	waitStatus(t, statusCh, StatusReconnecting)
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	msg = waitMessage(t, ts)
	assert.Equal(t, "subscribe", msg.Type)

	var req roomRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, domain.RoomKindMatch, req.Kind)
	assert.Equal(t, "7", req.ID)
}

func TestClient_SelfUnsubscribeDuringDispatch(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	first := make(chan struct{}, 4)
	second := make(chan struct{}, 4)

	var unsubscribe func()
	unsubscribe = client.Subscribe(domain.EventAgentMessage, func(domain.Event) {
		first <- struct{}{}
		unsubscribe()
		unsubscribe() // repeated calls are a no-op
	})
	client.Subscribe(domain.EventAgentMessage, func(domain.Event) {
		second <- struct{}{}
	})

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	ts.push(t, domain.NewEvent(domain.AgentMessagePayload{Text: "one"}))

	// Both listeners see the event of the pass the unsubscribe happened in.
	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first listener missed event")
	}
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second listener missed event")
	}

	// The next event reaches only the remaining listener.
	ts.push(t, domain.NewEvent(domain.AgentMessagePayload{Text: "two"}))
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second listener missed second event")
	}
	select {
	case <-first:
		t.Fatal("unsubscribed listener still received an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_SendChatMessage(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	// Fails fast while disconnected.
	err := client.SendChatMessage(7, "hello")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	require.NoError(t, client.SendChatMessage(7, "hello"))

	msg := waitMessage(t, ts)
	assert.Equal(t, "chat:send", msg.Type)

	var req chatSendRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, int64(7), req.MatchID)
	assert.Equal(t, "hello", req.Text)
}

func TestClient_CloseIsTerminal(t *testing.T) {
	ts := newTestServer(t)
	client, statusCh := newTestClient(t, ts, nil)

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	client.Close()
	waitStatus(t, statusCh, StatusClosed)

	assert.ErrorIs(t, client.SendChatMessage(7, "hi"), ErrClosed)
	assert.ErrorIs(t, client.SetSubscriptionIntent(domain.RoomKindMatch, "7", true), ErrClosed)
	assert.ErrorIs(t, client.Open(context.Background()), ErrClosed)

	// Close is idempotent.
	client.Close()
}

func TestClient_StoreTracksEventsAndStatus(t *testing.T) {
	ts := newTestServer(t)
	store := NewStore(10)
	client, statusCh := newTestClient(t, ts, store)

	require.NoError(t, client.Open(context.Background()))
	waitStatus(t, statusCh, StatusConnected)
	waitConn(t, ts)

	assert.Equal(t, StatusConnected, store.Status())

	require.NoError(t, client.SetSubscriptionIntent(domain.RoomKindMatch, "7", true))
	assert.True(t, store.IsSubscribed("match:7"))

	ts.push(t, domain.NewEvent(domain.AgentMessagePayload{Text: "hi"}))
	require.Eventually(t, func() bool {
		return len(store.RecentEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
