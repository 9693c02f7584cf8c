package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
)

// Per-frame failures. None of them is reported to the sender.
var (
	ErrMissingConsultation = errors.New("consultation id is required")
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotRoomMember       = errors.New("sender is not a member of the room")
	ErrUnknownFrameType    = errors.New("unknown frame type")
	ErrSessionClosed       = errors.New("session closed")
)

// MessageRouter classifies inbound frames and dispatches them to the
// registries and the gateway. It never touches storage.
type MessageRouter struct {
	rooms   *RoomRegistry
	gateway *Gateway
	log     *slog.Logger
	now     func() time.Time
}

func NewMessageRouter(rooms *RoomRegistry, gateway *Gateway, log *slog.Logger) *MessageRouter {
	if log == nil {
		log = slog.Default()
	}
	return &MessageRouter{
		rooms:   rooms,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

// Route handles one raw frame from sess. The returned error only explains why
// a frame was dropped.
func (r *MessageRouter) Route(sess *Session, raw []byte) error {
	frame, err := domain.ParseFrame(raw)
	if err != nil {
		return err
	}

	switch frame.Type {
	case domain.FrameJoinRoom:
		return r.join(sess, frame)
	case domain.FrameOffer, domain.FrameAnswer, domain.FrameICECandidate:
		return r.relay(sess, frame)
	case domain.FrameCallStatus:
		return r.callStatus(sess, frame)
	}

	r.log.Info("ignoring frame of unknown type",
		slog.String("type", frame.Type),
		slog.String("conn_id", sess.ID()),
	)
	return ErrUnknownFrameType
}

func (r *MessageRouter) join(sess *Session, frame *domain.Frame) error {
	identity := sess.Identity()

	// Patient tokens are pinned to one consultation; the body cannot move them.
	consultationID := frame.ConsultationID
	if identity.BindsConsultation() {
		consultationID = identity.ConsultationID
	}
	if consultationID == "" {
		return ErrMissingConsultation
	}

	if sess.State() == domain.ConnStateClosed {
		return ErrSessionClosed
	}

	side := identity.Side()
	if !r.rooms.Join(consultationID, side, sess) {
		return nil
	}
	if !sess.markJoined(consultationID, side) {
		r.rooms.Leave(consultationID, side, sess)
		return ErrSessionClosed
	}

	r.log.Info("joined room",
		slog.String("consultation_id", consultationID),
		slog.String("role", string(identity.Role)),
		slog.String("subject_id", identity.SubjectID),
		slog.String("conn_id", sess.ID()),
	)

	r.notify(sess, consultationID, domain.FrameUserJoined)
	return nil
}

func (r *MessageRouter) relay(sess *Session, frame *domain.Frame) error {
	side, err := r.senderSide(sess, frame)
	if err != nil {
		return err
	}

	msg, err := frame.Stamped(sess.Identity().Role, sess.Identity().SubjectID, r.now())
	if err != nil {
		return err
	}
	if _, ok := r.gateway.toSide(frame.ConsultationID, side.Opposite(), msg); !ok {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MessageRouter) callStatus(sess *Session, frame *domain.Frame) error {
	if _, err := r.senderSide(sess, frame); err != nil {
		return err
	}

	msg, err := frame.Stamped(sess.Identity().Role, sess.Identity().SubjectID, r.now())
	if err != nil {
		return err
	}
	if _, ok := r.gateway.toRoom(frame.ConsultationID, msg, nil); !ok {
		return ErrRoomNotFound
	}
	return nil
}

// senderSide checks the frame addresses a live room the sender belongs to.
// A missing room is the ordinary "peer already left" race.
func (r *MessageRouter) senderSide(sess *Session, frame *domain.Frame) (domain.Side, error) {
	if frame.ConsultationID == "" {
		return "", ErrMissingConsultation
	}
	if !r.rooms.Exists(frame.ConsultationID) {
		return "", ErrRoomNotFound
	}
	side, ok := sess.SideIn(frame.ConsultationID)
	if !ok {
		r.log.Warn("dropping frame for a room the sender has not joined",
			slog.String("type", frame.Type),
			slog.String("consultation_id", frame.ConsultationID),
			slog.String("conn_id", sess.ID()),
		)
		return "", ErrNotRoomMember
	}
	return side, nil
}

// notify sends a relay generated room event to everyone except sess.
func (r *MessageRouter) notify(sess *Session, consultationID string, typ string) {
	identity := sess.Identity()
	msg, err := encodePayload(domain.Notification{
		Type:           typ,
		ConsultationID: consultationID,
		From:           identity.Role,
		FromID:         identity.SubjectID,
		Timestamp:      domain.FormatTimestamp(r.now()),
	}, nil)
	if err != nil {
		r.log.Error("cannot encode notification", sl.Err(err))
		return
	}
	r.gateway.toRoom(consultationID, msg, sess)
}
