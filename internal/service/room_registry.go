package service

import (
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/medsignal/internal/domain"
)

// room is one consultation. Membership is guarded by the room's own mutex so
// unrelated consultations never contend. closed is set under mu when the last
// member leaves; a closed room never accepts members again.
type room struct {
	id       string
	mu       sync.Mutex
	closed   bool
	doctors  map[string]*Session
	patients map[string]*Session
}

func newRoom(id string) *room {
	return &room{
		id:       id,
		doctors:  make(map[string]*Session),
		patients: make(map[string]*Session),
	}
}

func (r *room) side(side domain.Side) map[string]*Session {
	if side == domain.SideDoctor {
		return r.doctors
	}
	return r.patients
}

func (r *room) empty() bool {
	return len(r.doctors) == 0 && len(r.patients) == 0
}

// RoomRegistry indexes live sessions by consultation id. The registry lock
// only covers the lookup map; membership changes take the per-room lock.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   *slog.Logger
}

func NewRoomRegistry(log *slog.Logger) *RoomRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &RoomRegistry{
		rooms: make(map[string]*room),
		log:   log,
	}
}

// Join adds sess to one side of the room, creating the room if needed.
// Re-adding a session already on that side is a no-op and reports false.
func (r *RoomRegistry) Join(consultationID string, side domain.Side, sess *Session) bool {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[consultationID]
		if !ok {
			rm = newRoom(consultationID)
			rm.side(side)[sess.ID()] = sess
			r.rooms[consultationID] = rm
			r.mu.Unlock()
			r.log.Info("room created",
				slog.String("consultation_id", consultationID),
				slog.String("side", string(side)),
			)
			return true
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if rm.closed {
			// Lost the race with the last leaver; it is unlinking the room.
			rm.mu.Unlock()
			r.unlink(rm)
			continue
		}
		members := rm.side(side)
		if _, dup := members[sess.ID()]; dup {
			rm.mu.Unlock()
			return false
		}
		members[sess.ID()] = sess
		rm.mu.Unlock()
		return true
	}
}

// Leave removes sess from the given side. The emptiness check runs under the
// same room lock as the removal, so a room is deleted exactly when its last
// member leaves. It reports whether the room was deleted.
func (r *RoomRegistry) Leave(consultationID string, side domain.Side, sess *Session) bool {
	rm, ok := r.lookup(consultationID)
	if !ok {
		return false
	}

	rm.mu.Lock()
	members := rm.side(side)
	if _, ok := members[sess.ID()]; !ok {
		rm.mu.Unlock()
		return false
	}
	delete(members, sess.ID())
	deleted := rm.empty()
	if deleted {
		rm.closed = true
	}
	rm.mu.Unlock()

	if deleted {
		r.unlink(rm)
		r.log.Info("room deleted", slog.String("consultation_id", consultationID))
	}
	return deleted
}

// Exists reports whether the room is live.
func (r *RoomRegistry) Exists(consultationID string) bool {
	_, ok := r.snapshot(consultationID, func(rm *room) []*Session { return nil })
	return ok
}

// Members returns the sessions on one side. ok is false when the room does
// not exist.
func (r *RoomRegistry) Members(consultationID string, side domain.Side) ([]*Session, bool) {
	return r.snapshot(consultationID, func(rm *room) []*Session {
		return collect(rm.side(side))
	})
}

// AllConnections returns the union of both sides.
func (r *RoomRegistry) AllConnections(consultationID string) ([]*Session, bool) {
	return r.snapshot(consultationID, func(rm *room) []*Session {
		out := collect(rm.doctors)
		return append(out, collect(rm.patients)...)
	})
}

func (r *RoomRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *RoomRegistry) snapshot(consultationID string, fn func(rm *room) []*Session) ([]*Session, bool) {
	rm, ok := r.lookup(consultationID)
	if !ok {
		return nil, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return nil, false
	}
	return fn(rm), true
}

func (r *RoomRegistry) lookup(consultationID string) (*room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[consultationID]
	return rm, ok
}

// unlink drops rm from the map unless it was already replaced.
func (r *RoomRegistry) unlink(rm *room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[rm.id]; ok && cur == rm {
		delete(r.rooms, rm.id)
	}
}

func collect(set map[string]*Session) []*Session {
	out := make([]*Session, 0, len(set))
	for _, sess := range set {
		out = append(out, sess)
	}
	return out
}
