package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 2048
)

// Session is a middleman between one websocket connection and the hub. It
// owns its room membership set; the hub mutates it only through Join/Leave.
type Session struct {
	// ID is the opaque session identifier.
	ID uuid.UUID

	// Agent is the authenticated agent address (normalized form).
	Agent string

	// Buffered channel of outbound events.
	Send chan domain.Event

	hub  *Hub
	conn *websocket.Conn
	chat ports.ChatService

	// pongs signals WritePump to answer a client keep-alive.
	pongs chan struct{}

	// rooms maps canonical room names to rooms this session joined
	rooms map[string]domain.Room

	// sendMu guards sendClosed so no goroutine can send on Send after the
	// hub has closed it. The hub tears sessions down while the pumps are
	// still running.
	sendMu     sync.Mutex
	sendClosed bool

	// mu protects the rooms map
	mu sync.RWMutex

	logger *slog.Logger
}

// NewSession creates a session for an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn, agent string, chat ports.ChatService, sendBuffer int, logger *slog.Logger) *Session {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	id := uuid.New()
	return &Session{
		ID:     id,
		Agent:  domain.NormalizeAddress(agent),
		Send:   make(chan domain.Event, sendBuffer),
		pongs:  make(chan struct{}, 1),
		hub:    hub,
		conn:   conn,
		chat:   chat,
		rooms:  make(map[string]domain.Room),
		logger: logger.With("session_id", id.String()),
	}
}

// CloseSend closes the Send channel exactly once. Safe to call while the
// pumps are still running: concurrent senders go through trySend, which
// observes the flag under the same lock.
func (s *Session) CloseSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}
	s.sendClosed = true
	close(s.Send)
}

// trySend enqueues an event for WritePump without blocking. It reports false
// when the session is already closed or its buffer is full; it never panics,
// even against a concurrent CloseSend.
func (s *Session) trySend(event domain.Event) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return false
	}
	select {
	case s.Send <- event:
		return true
	default:
		return false
	}
}

func (s *Session) addRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Name()] = room
}

func (s *Session) removeRoom(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, name)
}

// InRoom checks if the session is currently a member of the room.
func (s *Session) InRoom(room domain.Room) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room.Name()]
	return ok
}

// RoomNames returns a copy of the canonical names of all joined rooms.
func (s *Session) RoomNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	return names
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister <- s
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error("failed to set read deadline", "error", err)
		return
	}

	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			s.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		s.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the hub to the websocket connection.
// This method runs in its own goroutine.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.Send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := s.writeJSON(event); err != nil {
				s.logger.Error("failed to write event", "error", err)
				return
			}

		case <-s.pongs:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error("failed to set write deadline for pong", "error", err)
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, pongReply); err != nil {
				s.logger.Debug("failed to send pong", "error", err)
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes an event envelope to the websocket connection
func (s *Session) writeJSON(event domain.Event) error {
	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// clientMessage is the structure for messages sent from the client.
type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomRequest is the payload for subscribe/unsubscribe messages.
type roomRequest struct {
	Kind domain.RoomKind `json:"kind"`
	ID   string          `json:"id"`
}

// pongReply answers a client keep-alive. It deliberately carries no "event"
// key so consumers never confuse it with a catalog event envelope.
var pongReply = []byte(`{"type":"pong"}`)

// chatSendRequest is the payload for chat:send messages. The sender is taken
// from the authenticated session, never from the wire.
type chatSendRequest struct {
	MatchID int64  `json:"matchId"`
	Text    string `json:"text"`
}

// handleIncomingMessage processes messages received from the client
func (s *Session) handleIncomingMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		s.handleSubscribe(msg.Payload)

	case "unsubscribe":
		s.handleUnsubscribe(msg.Payload)

	case "chat:send":
		s.handleChatSend(msg.Payload)

	case "ping":
		// Client-side keep-alive, respond with pong
		s.sendPong()

	default:
		s.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (s *Session) handleSubscribe(payload json.RawMessage) {
	room, ok := s.parseRoomRequest(payload)
	if !ok {
		return
	}
	s.hub.Join(s, room)
}

func (s *Session) handleUnsubscribe(payload json.RawMessage) {
	room, ok := s.parseRoomRequest(payload)
	if !ok {
		return
	}
	s.hub.Leave(s, room)
}

func (s *Session) parseRoomRequest(payload json.RawMessage) (domain.Room, bool) {
	var req roomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("failed to unmarshal room request", "error", err)
		return domain.Room{}, false
	}

	room, err := domain.NewRoom(req.Kind, req.ID)
	if err != nil {
		s.logger.Warn("invalid room request", "kind", req.Kind, "id", req.ID, "error", err)
		return domain.Room{}, false
	}
	return room, true
}

func (s *Session) handleChatSend(payload json.RawMessage) {
	var req chatSendRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("failed to unmarshal chat request", "error", err)
		return
	}

	_, err := s.chat.SendMessage(context.Background(), ports.SendChatParams{
		MatchID: req.MatchID,
		Sender:  s.Agent,
		Body:    req.Text,
	})
	if err != nil {
		s.sendChatError(req.MatchID, err)
	}
}

// sendChatError delivers a chat:error event to this session only, scoped to
// the match the failed send targeted.
func (s *Session) sendChatError(matchID int64, err error) {
	code := "INVALID_INPUT"
	switch {
	case errors.Is(err, apperrors.ErrRateLimited):
		code = "RATE_LIMITED"
	case errors.Is(err, apperrors.ErrInternal):
		code = "INTERNAL_ERROR"
	}

	event := domain.NewEvent(domain.ChatErrorPayload{
		MatchID:   matchID,
		Code:      code,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	})

	// The error is transient client feedback; if the session is closed or
	// its buffer full, drop it.
	s.trySend(event)
}

func (s *Session) sendPong() {
	select {
	case s.pongs <- struct{}{}:
	default:
		// A pong is already pending, one reply covers both pings.
	}
}
