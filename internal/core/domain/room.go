package domain

import (
	"fmt"
	"strconv"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// RoomKind classifies a broadcast scope.
type RoomKind string

const (
	RoomKindGlobal     RoomKind = "global"
	RoomKindTournament RoomKind = "tournament"
	RoomKindMatch      RoomKind = "match"
	RoomKindAgent      RoomKind = "agent"
)

// Room identifies a broadcast scope. Two rooms are equal iff their canonical
// names are equal; Room is comparable so it can key maps directly.
type Room struct {
	Kind RoomKind
	ID   string
}

// GlobalRoom is the scope every event reaches.
var GlobalRoom = Room{Kind: RoomKindGlobal}

// MatchRoom scopes events to a single match.
func MatchRoom(matchID int64) Room {
	return Room{Kind: RoomKindMatch, ID: strconv.FormatInt(matchID, 10)}
}

// TournamentRoom scopes events to a single tournament.
func TournamentRoom(tournamentID int64) Room {
	return Room{Kind: RoomKindTournament, ID: strconv.FormatInt(tournamentID, 10)}
}

// AgentRoom scopes events to a single agent. The address is normalized so
// case variants of the same address always resolve to the same room.
func AgentRoom(address string) Room {
	return Room{Kind: RoomKindAgent, ID: NormalizeAddress(address)}
}

// NewRoom builds a room from wire values (subscribe/unsubscribe requests).
func NewRoom(kind RoomKind, id string) (Room, error) {
	switch kind {
	case RoomKindGlobal:
		return GlobalRoom, nil
	case RoomKindMatch, RoomKindTournament:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return Room{}, fmt.Errorf("%w: invalid %s id %q", apperrors.ErrBadRequest, kind, id)
		}
		// Re-render the id so variants like "07" or "+7" land in the same
		// room as routed events for id 7.
		return Room{Kind: kind, ID: strconv.FormatInt(n, 10)}, nil
	case RoomKindAgent:
		if !IsHexAddress(id) {
			return Room{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidAddress, id)
		}
		return AgentRoom(id), nil
	default:
		return Room{}, fmt.Errorf("%w: unknown room kind %q", apperrors.ErrBadRequest, kind)
	}
}

// Name returns the canonical room name: "<kind>:<id>", or "global".
func (r Room) Name() string {
	if r.Kind == RoomKindGlobal {
		return string(RoomKindGlobal)
	}
	return string(r.Kind) + ":" + r.ID
}

func (r Room) String() string { return r.Name() }
