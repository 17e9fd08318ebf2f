// Package realtimeclient is the consumer-side SDK for the arena realtime
// service. A Client maintains a websocket connection with automatic
// reconnection, keeps declared room interests reconciled across reconnects,
// and dispatches typed events to registered listeners.
package realtimeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

// Status describes the connectivity state of a Client.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusClosed       Status = "closed"
)

var (
	// ErrNotConnected is returned by outbound actions while the transport
	// is down. Callers fail fast instead of queueing.
	ErrNotConnected = errors.New("realtimeclient: not connected")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("realtimeclient: client closed")
)

const defaultHandshakeTimeout = 10 * time.Second

// Config holds the settings for a Client.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://host:8080/api/v1/ws".
	URL string

	// Token is the JWT presented as a query parameter on connect.
	Token string

	// HandshakeTimeout bounds the websocket handshake. Defaults to 10s.
	HandshakeTimeout time.Duration

	// InitialBackoff and MaxBackoff shape the reconnect schedule. Zero
	// values use the backoff library defaults (500ms initial, 60s cap).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Store, when set, is kept up to date with events, room membership
	// and connectivity status.
	Store *Store

	Logger *slog.Logger
}

// Handler receives a dispatched event.
type Handler func(domain.Event)

type listener struct {
	id int
	fn Handler
}

// Client is a per-consumer realtime connection. All methods are safe for
// concurrent use.
type Client struct {
	cfg    Config
	dialer websocket.Dialer
	logger *slog.Logger
	store  *Store

	mu          sync.Mutex
	status      Status
	conn        *websocket.Conn
	intent      map[domain.Room]bool
	listeners   map[domain.EventType][]listener
	nextID      int
	statusHooks []func(Status)
	cancel      context.CancelFunc
	done        chan struct{}
	closed      bool
}

// New creates a Client. Call Open to start connecting.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("realtimeclient: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("realtimeclient: invalid URL: %w", err)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:       cfg,
		dialer:    websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:    logger,
		store:     cfg.Store,
		status:    StatusDisconnected,
		intent:    make(map[domain.Room]bool),
		listeners: make(map[domain.EventType][]listener),
	}, nil
}

// Open starts the connection loop. The loop keeps reconnecting with capped
// exponential backoff until Close is called or ctx is cancelled; there is no
// retry limit. Open returns immediately.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.done != nil {
		c.mu.Unlock()
		return errors.New("realtimeclient: already open")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.setStatus(StatusConnecting)
	go func() {
		defer close(done)
		c.run(runCtx)
	}()
	return nil
}

// Close tears down the transport, clears all listeners, and stops every
// pending timer. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.conn = nil
	c.listeners = make(map[domain.EventType][]listener)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.setStatus(StatusClosed)
	if c.store != nil {
		c.store.Close()
	}
}

// Status returns the current connectivity status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OnStatusChange registers a hook invoked on every status transition.
// Hooks are called synchronously, in registration order.
func (c *Client) OnStatusChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusHooks = append(c.statusHooks, fn)
}

// Subscribe registers a listener for an event type and returns a closure
// that removes exactly that listener. Multiple listeners per type are
// allowed and invoked in registration order. The returned closure is
// idempotent and safe to call from within the handler itself.
func (c *Client) Subscribe(t domain.EventType, fn Handler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[t] = append(c.listeners[t], listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.listeners[t]
		for i, l := range list {
			if l.id == id {
				c.listeners[t] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// SetSubscriptionIntent declares or withdraws interest in a room. The
// intent set is the source of truth for membership: a join or leave is
// issued immediately when connected, and every intended room is re-joined
// automatically after each reconnect.
func (c *Client) SetSubscriptionIntent(kind domain.RoomKind, id string, desired bool) error {
	room, err := domain.NewRoom(kind, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if desired {
		if c.intent[room] {
			return nil
		}
		c.intent[room] = true
	} else {
		if !c.intent[room] {
			return nil
		}
		delete(c.intent, room)
	}

	if c.store != nil {
		c.store.SetRoom(room.Name(), desired)
	}

	if c.conn == nil {
		return nil
	}
	msgType := "subscribe"
	if !desired {
		msgType = "unsubscribe"
	}
	return c.writeLocked(outboundMessage{
		Type:    msgType,
		Payload: mustRaw(roomRequest{Kind: room.Kind, ID: room.ID}),
	})
}

// SendChatMessage sends a chat message for a match. It fails fast with
// ErrNotConnected while the transport is down.
func (c *Client) SendChatMessage(matchID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.writeLocked(outboundMessage{
		Type:    "chat:send",
		Payload: mustRaw(chatSendRequest{MatchID: matchID, Text: text}),
	})
}

// outboundMessage mirrors the server's client message envelope.
type outboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type roomRequest struct {
	Kind domain.RoomKind `json:"kind"`
	ID   string          `json:"id"`
}

type chatSendRequest struct {
	MatchID int64  `json:"matchId"`
	Text    string `json:"text"`
}

// inboundEnvelope is the server event envelope before payload decoding.
type inboundEnvelope struct {
	Event     domain.EventType `json:"event"`
	Payload   json.RawMessage  `json:"payload"`
	EmittedAt time.Time        `json:"emittedAt"`
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// writeLocked writes a message on the current connection. Callers must hold
// c.mu, which also serializes all writers on the connection.
func (c *Client) writeLocked(msg outboundMessage) error {
	return c.conn.WriteJSON(msg)
}

func (c *Client) run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		bo.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		bo.MaxInterval = c.cfg.MaxBackoff
	}
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			c.logger.Warn("connection attempt failed",
				"url", c.cfg.URL,
				"retry_in", wait,
				"error", err,
			)
			c.setStatus(StatusReconnecting)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		// Re-issue joins for every intended room before publishing the
		// connection, so no outbound action can race ahead of
		// reconciliation.
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		resubErr := c.resubscribe(conn)
		if resubErr == nil {
			c.conn = conn
		}
		c.mu.Unlock()

		if resubErr != nil {
			_ = conn.Close()
			c.logger.Warn("failed to restore room subscriptions", "error", resubErr)
			c.setStatus(StatusReconnecting)
			continue
		}

		c.setStatus(StatusConnected)
		c.logger.Info("connected", "url", c.cfg.URL)

		readErr := c.readLoop(conn)
		_ = conn.Close()

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()

		if closed || ctx.Err() != nil {
			return
		}
		c.logger.Warn("connection lost", "error", readErr)
		c.setStatus(StatusReconnecting)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// resubscribe sends a join for every room in the intent set. Caller holds c.mu.
func (c *Client) resubscribe(conn *websocket.Conn) error {
	for room := range c.intent {
		msg := outboundMessage{
			Type:    "subscribe",
			Payload: mustRaw(roomRequest{Kind: room.Kind, ID: room.ID}),
		}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			continue
		}
		if env.Event == "" {
			// Keep-alive replies and other non-event frames carry no
			// event name.
			continue
		}

		payload, err := domain.DecodePayload(env.Event, env.Payload)
		if err != nil {
			c.logger.Warn("dropping undecodable event", "event", env.Event, "error", err)
			continue
		}

		c.dispatch(domain.Event{
			Type:      env.Event,
			Payload:   payload,
			EmittedAt: env.EmittedAt,
		})
	}
}

// dispatch invokes all listeners registered for the event's type, in
// registration order, over a snapshot of the listener list. A listener
// unsubscribing itself mid-dispatch does not disturb the pass.
func (c *Client) dispatch(evt domain.Event) {
	if c.store != nil {
		c.store.Record(evt)
	}

	c.mu.Lock()
	list := c.listeners[evt.Type]
	snapshot := make([]listener, len(list))
	copy(snapshot, list)
	c.mu.Unlock()

	for _, l := range snapshot {
		l.fn(evt)
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	hooks := make([]func(Status), len(c.statusHooks))
	copy(hooks, c.statusHooks)
	c.mu.Unlock()

	if c.store != nil {
		c.store.SetStatus(s)
	}
	for _, fn := range hooks {
		fn(s)
	}
}
