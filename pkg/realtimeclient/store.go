package realtimeclient

import (
	"sync"
	"time"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

const (
	// DefaultRecentEventsCapacity bounds the recent-events ring.
	DefaultRecentEventsCapacity = 100

	// DefaultChatErrorTTL is how long a chat error stays visible before it
	// expires on its own.
	DefaultChatErrorTTL = 5 * time.Second
)

// ChatError is a chat-level application error scoped to one match.
type ChatError struct {
	MatchID    int64
	Code       string
	Message    string
	ReceivedAt time.Time
}

// Store is a process-local cache fed by Client callbacks: a bounded ring of
// recent events (oldest evicted first), the set of currently subscribed
// rooms, the connectivity status, and short-lived per-match chat errors.
type Store struct {
	mu         sync.Mutex
	capacity   int
	errorTTL   time.Duration
	events     []domain.Event
	rooms      map[string]bool
	status     Status
	chatErrors map[int64]ChatError
	timers     map[int64]*time.Timer
	closed     bool
}

// NewStore creates a store with the given ring capacity. A capacity of 0 or
// less uses DefaultRecentEventsCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultRecentEventsCapacity
	}
	return &Store{
		capacity:   capacity,
		errorTTL:   DefaultChatErrorTTL,
		rooms:      make(map[string]bool),
		status:     StatusDisconnected,
		chatErrors: make(map[int64]ChatError),
		timers:     make(map[int64]*time.Timer),
	}
}

// Record appends an event to the ring, evicting the oldest on overflow.
// Events are kept newest last. Chat errors are additionally tracked with
// auto-expiry.
func (s *Store) Record(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.events = append(s.events, evt)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}

	if p, ok := evt.Payload.(domain.ChatErrorPayload); ok {
		s.recordChatErrorLocked(p)
	}
}

// RecentEvents returns a copy of the ring, oldest first.
func (s *Store) RecentEvents() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// SetRoom records or clears membership for a canonical room name.
func (s *Store) SetRoom(name string, member bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if member {
		s.rooms[name] = true
	} else {
		delete(s.rooms, name)
	}
}

// IsSubscribed reports whether a room is currently in the membership set.
// Collaborators use this to avoid redundant join calls.
func (s *Store) IsSubscribed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[name]
}

// Rooms returns the canonical names of all currently subscribed rooms.
func (s *Store) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		out = append(out, name)
	}
	return out
}

// SetStatus records the current connectivity status.
func (s *Store) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.status = status
}

// Status returns the last recorded connectivity status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) recordChatErrorLocked(p domain.ChatErrorPayload) {
	if t, ok := s.timers[p.MatchID]; ok {
		t.Stop()
	}
	s.chatErrors[p.MatchID] = ChatError{
		MatchID:    p.MatchID,
		Code:       p.Code,
		Message:    p.Message,
		ReceivedAt: time.Now(),
	}
	matchID := p.MatchID
	s.timers[matchID] = time.AfterFunc(s.errorTTL, func() {
		s.expireChatError(matchID)
	})
}

func (s *Store) expireChatError(matchID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chatErrors, matchID)
	delete(s.timers, matchID)
}

// ChatError returns the active chat error for a match, if one has not yet
// expired.
func (s *Store) ChatError(matchID int64) (ChatError, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ce, ok := s.chatErrors[matchID]
	return ce, ok
}

// Close stops all pending expiry timers and freezes the store. Safe to call
// more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.chatErrors = make(map[int64]ChatError)
}
