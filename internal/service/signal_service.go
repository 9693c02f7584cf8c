package service

import (
	"log/slog"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
)

// SignalService owns the connection lifecycle: it authenticates transports,
// feeds their frames to the router and prunes every registry on close.
type SignalService struct {
	tokens  *TokenService
	doctors *DoctorRegistry
	rooms   *RoomRegistry
	router  *MessageRouter
	log     *slog.Logger
}

var _ SignalInteractor = (*SignalService)(nil)

func NewSignalService(
	tokens *TokenService,
	doctors *DoctorRegistry,
	rooms *RoomRegistry,
	router *MessageRouter,
	log *slog.Logger,
) *SignalService {
	if log == nil {
		log = slog.Default()
	}
	return &SignalService{
		tokens:  tokens,
		doctors: doctors,
		rooms:   rooms,
		router:  router,
		log:     log,
	}
}

// Connect authenticates a freshly opened transport. On failure the returned
// error is an *AuthError and the caller must close the transport.
func (s *SignalService) Connect(token string, conn Conn) (*Session, error) {
	const op = "service.signal.connect"
	log := s.log.With(slog.String("op", op), slog.String("conn_id", conn.ID()))

	identity, err := s.tokens.Validate(token)
	if err != nil {
		log.Warn("authentication failed", sl.Err(err))
		return nil, err
	}

	sess := newSession(conn, identity)
	if identity.IsDoctorChannel() {
		s.doctors.Register(identity.SubjectID, sess)
	}
	sess.transition(domain.ConnStateAuthenticated)

	log.Info("connection authenticated",
		slog.String("role", string(identity.Role)),
		slog.String("subject_id", identity.SubjectID),
	)
	return sess, nil
}

func (s *SignalService) Handle(sess *Session, raw []byte) error {
	if sess.State() == domain.ConnStateClosed {
		return ErrSessionClosed
	}
	return s.router.Route(sess, raw)
}

// Disconnect removes sess from every registry it belongs to. Rooms left
// empty are deleted; remaining members get a user-left event.
func (s *SignalService) Disconnect(sess *Session) {
	const op = "service.signal.disconnect"

	rooms, ok := sess.close()
	if !ok {
		return
	}

	identity := sess.Identity()
	if identity.IsDoctorChannel() {
		s.doctors.Unregister(identity.SubjectID, sess)
	}

	for consultationID, side := range rooms {
		if deleted := s.rooms.Leave(consultationID, side, sess); deleted {
			continue
		}
		s.router.notify(sess, consultationID, domain.FrameUserLeft)
	}

	s.log.Info("connection closed",
		slog.String("op", op),
		slog.String("conn_id", sess.ID()),
		slog.String("role", string(identity.Role)),
		slog.String("subject_id", identity.SubjectID),
		slog.Int("rooms_left", len(rooms)),
	)
}

func (s *SignalService) Stats() domain.RoomStats {
	doctors, conns := s.doctors.Counts()
	return domain.RoomStats{
		Rooms:       s.rooms.Len(),
		Doctors:     doctors,
		Connections: conns,
	}
}
