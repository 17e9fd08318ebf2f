package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	"github.com/agentarena/realtime-backend/internal/core/ports"
	"github.com/agentarena/realtime-backend/internal/core/routing"
	"github.com/agentarena/realtime-backend/internal/infrastructure/metrics"
)

// Hub owns the set of connected Sessions and their room memberships, and
// fans events out to exactly the sessions in the rooms the router selects,
// at most once per session per emission.
type Hub struct {
	// sessions maps session IDs to their live connections
	sessions map[uuid.UUID]*Session

	// rooms maps canonical room names to member sessions
	rooms map[string]map[*Session]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from sessions
	Register chan *Session

	// Unregister requests from sessions
	Unregister chan *Session

	// mu protects the sessions and rooms maps
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub. broadcastBuffer bounds how many
// emissions may be queued before Emit starts dropping.
func NewHub(logger *slog.Logger, m *metrics.Metrics, broadcastBuffer int) *Hub {
	if broadcastBuffer <= 0 {
		broadcastBuffer = 256
	}
	return &Hub{
		sessions:   make(map[uuid.UUID]*Session),
		rooms:      make(map[string]map[*Session]bool),
		broadcast:  make(chan domain.Event, broadcastBuffer),
		Register:   make(chan *Session),
		Unregister: make(chan *Session),
		logger:     logger.With("component", "websocket_hub"),
		metrics:    m,
	}
}

// Emit queues an event for fan-out. It never blocks the producer: when the
// broadcast queue is full the event is dropped with a warning.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Emit(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event", event.Type,
		)
		h.metrics.EventsDropped.Inc()
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine. The loop
// serializes registration, teardown and fan-out, so each emission sees a
// consistent membership snapshot. Cancelling ctx stops the loop.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case session := <-h.Register:
			h.registerSession(session)

		case session := <-h.Unregister:
			h.unregisterSession(session)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerSession adds a session to the hub and to the global room.
func (h *Hub) registerSession(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session.ID] = session
	h.joinLocked(session, domain.GlobalRoom)

	h.metrics.Sessions.Set(float64(len(h.sessions)))
	h.logger.Info("session registered",
		"session_id", session.ID,
		"agent", session.Agent,
		"total_sessions", len(h.sessions),
	)
}

// unregisterSession removes a session from the hub and every room it joined.
// The drop is atomic: after the lock is released no fan-out can reach it.
func (h *Hub) unregisterSession(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[session.ID]; !ok {
		return
	}
	delete(h.sessions, session.ID)

	for _, name := range session.RoomNames() {
		h.leaveByNameLocked(session, name)
	}

	session.CloseSend()

	h.metrics.Sessions.Set(float64(len(h.sessions)))
	h.metrics.Rooms.Set(float64(len(h.rooms)))
	h.logger.Info("session unregistered",
		"session_id", session.ID,
		"agent", session.Agent,
	)
}

// Join adds the session to a room. Idempotent: joining a room the session
// already belongs to is a no-op.
func (h *Hub) Join(session *Session, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(session, room)
}

func (h *Hub) joinLocked(session *Session, room domain.Room) {
	name := room.Name()
	if h.rooms[name] == nil {
		h.rooms[name] = make(map[*Session]bool)
	}
	if h.rooms[name][session] {
		return
	}
	h.rooms[name][session] = true
	session.addRoom(room)

	h.metrics.Rooms.Set(float64(len(h.rooms)))
	h.logger.Debug("session joined room",
		"session_id", session.ID,
		"room", name,
	)
}

// Leave removes the session from a room. Idempotent: leaving a room the
// session does not belong to is a no-op.
func (h *Hub) Leave(session *Session, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := room.Name()
	h.leaveByNameLocked(session, name)
	session.removeRoom(name)

	h.metrics.Rooms.Set(float64(len(h.rooms)))
	h.logger.Debug("session left room",
		"session_id", session.ID,
		"room", name,
	)
}

func (h *Hub) leaveByNameLocked(session *Session, name string) {
	if room, ok := h.rooms[name]; ok {
		delete(room, session)
		if len(room) == 0 {
			delete(h.rooms, name)
		}
	}
}

// broadcastEvent routes the event and delivers it to every member of the
// matched rooms, at most once per session. A routing defect is logged and
// the event dropped; it never affects other emissions.
func (h *Hub) broadcastEvent(event domain.Event) {
	rooms, err := routing.Resolve(event)
	if err != nil {
		h.logger.Error("routing defect, dropping event",
			"event", event.Type,
			"error", err,
		)
		h.metrics.EventsDropped.Inc()
		return
	}

	h.metrics.EventsEmitted.WithLabelValues(string(event.Type)).Inc()

	// Snapshot the member set so the whole fan-out sees one consistent
	// membership state, deduplicated across matched rooms.
	h.mu.RLock()
	seen := make(map[*Session]bool)
	targets := make([]*Session, 0)
	for _, room := range rooms {
		for session := range h.rooms[room.Name()] {
			if !seen[session] {
				seen[session] = true
				targets = append(targets, session)
			}
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event", event.Type,
		"rooms", len(rooms),
		"session_count", len(targets),
	)

	for _, session := range targets {
		if session.trySend(event) {
			h.metrics.Deliveries.Inc()
			continue
		}
		// Session is gone or its send buffer is full; a stalled transport
		// must not hold up the rest of the fan-out.
		h.logger.Warn("session unreachable, disconnecting",
			"session_id", session.ID,
			"agent", session.Agent,
		)
		h.metrics.DeliveryFailures.Inc()
		h.unregisterSession(session)
	}
}

// closeAll tears down every session; used on hub shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, session := range h.sessions {
		session.CloseSend()
		delete(h.sessions, id)
	}
	h.rooms = make(map[string]map[*Session]bool)
	h.metrics.Sessions.Set(0)
	h.metrics.Rooms.Set(0)
	h.logger.Info("hub stopped, all sessions closed")
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// SessionsInRoom returns the number of sessions currently in the room.
func (h *Hub) SessionsInRoom(room domain.Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.rooms[room.Name()]; ok {
		return len(members)
	}
	return 0
}
