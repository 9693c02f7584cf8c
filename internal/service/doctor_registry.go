package service

import (
	"log/slog"
	"sync"
)

// DoctorRegistry indexes live sessions by doctor id. A doctor may hold
// several sessions at once, one per open tab or device.
type DoctorRegistry struct {
	mu      sync.RWMutex
	doctors map[string]map[string]*Session
	log     *slog.Logger
}

func NewDoctorRegistry(log *slog.Logger) *DoctorRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &DoctorRegistry{
		doctors: make(map[string]map[string]*Session),
		log:     log,
	}
}

// Register adds the session under doctorID. It reports false when the
// session was already registered.
func (r *DoctorRegistry) Register(doctorID string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.doctors[doctorID]
	if !ok {
		set = make(map[string]*Session)
		r.doctors[doctorID] = set
	}
	if _, dup := set[sess.ID()]; dup {
		return false
	}
	set[sess.ID()] = sess

	r.log.Debug("doctor connection registered",
		slog.String("doctor_id", doctorID),
		slog.String("conn_id", sess.ID()),
		slog.Int("connections", len(set)),
	)
	return true
}

// Unregister removes the session and drops the doctor entry once its set
// is empty.
func (r *DoctorRegistry) Unregister(doctorID string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.doctors[doctorID]
	if !ok {
		return false
	}
	if _, ok := set[sess.ID()]; !ok {
		return false
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(r.doctors, doctorID)
	}

	r.log.Debug("doctor connection unregistered",
		slog.String("doctor_id", doctorID),
		slog.String("conn_id", sess.ID()),
	)
	return true
}

func (r *DoctorRegistry) Connections(doctorID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.doctors[doctorID]
	out := make([]*Session, 0, len(set))
	for _, sess := range set {
		out = append(out, sess)
	}
	return out
}

// All returns every session in the index.
func (r *DoctorRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.doctors))
	for _, set := range r.doctors {
		for _, sess := range set {
			out = append(out, sess)
		}
	}
	return out
}

func (r *DoctorRegistry) Has(doctorID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.doctors[doctorID]
	return ok
}

// Counts returns the number of doctors and of their sessions.
func (r *DoctorRegistry) Counts() (doctors int, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.doctors {
		connections += len(set)
	}
	return len(r.doctors), connections
}
