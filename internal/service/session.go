package service

import (
	"sync"

	"github.com/immxrtalbeast/medsignal/internal/domain"
)

// Session binds one live transport to the identity it authenticated with.
type Session struct {
	conn     Conn
	identity domain.Identity

	mu    sync.Mutex
	state domain.ConnState
	rooms map[string]domain.Side
}

func newSession(conn Conn, identity domain.Identity) *Session {
	return &Session{
		conn:     conn,
		identity: identity,
		state:    domain.ConnStateConnecting,
		rooms:    make(map[string]domain.Side),
	}
}

func (s *Session) ID() string {
	return s.conn.ID()
}

func (s *Session) Conn() Conn {
	return s.conn
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

func (s *Session) State() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(next domain.ConnState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(next) {
		return false
	}
	s.state = next
	return true
}

// markJoined records room membership. It fails once the session closed.
func (s *Session) markJoined(consultationID string, side domain.Side) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(domain.ConnStateJoined) {
		return false
	}
	s.state = domain.ConnStateJoined
	s.rooms[consultationID] = side
	return true
}

// SideIn returns the side the session joined in the given room.
func (s *Session) SideIn(consultationID string) (domain.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	side, ok := s.rooms[consultationID]
	return side, ok
}

func (s *Session) Rooms() map[string]domain.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Side, len(s.rooms))
	for id, side := range s.rooms {
		out[id] = side
	}
	return out
}

// close moves the session to its terminal state and hands back the rooms it
// still has to be drained from. A second call returns false.
func (s *Session) close() (map[string]domain.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.ConnStateClosed {
		return nil, false
	}
	s.state = domain.ConnStateClosed
	rooms := s.rooms
	s.rooms = make(map[string]domain.Side)
	return rooms, true
}
