package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/internal/repository"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
)

// Gateway is the only component that writes to transports. Each primitive
// scopes its recipients so clinical payloads reach only the doctor or room
// they belong to.
type Gateway struct {
	doctors *DoctorRegistry
	rooms   *RoomRegistry
	users   repository.UserDirectory
	log     *slog.Logger
	now     func() time.Time
}

var _ Broadcaster = (*Gateway)(nil)

func NewGateway(doctors *DoctorRegistry, rooms *RoomRegistry, users repository.UserDirectory, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		doctors: doctors,
		rooms:   rooms,
		users:   users,
		log:     log,
		now:     time.Now,
	}
}

// BroadcastToDoctor writes to the sessions registered under doctorID only.
func (g *Gateway) BroadcastToDoctor(doctorID string, payload any) int {
	const op = "service.gateway.toDoctor"
	msg, err := encodePayload(payload, nil)
	if err != nil {
		g.log.Error("cannot encode payload", slog.String("op", op), sl.Err(err))
		return 0
	}
	return g.deliver(op, g.doctors.Connections(doctorID), msg, nil)
}

// BroadcastToAdmins resolves the admin audience through the user directory
// and writes a timestamped payload to every admin session.
func (g *Gateway) BroadcastToAdmins(ctx context.Context, payload any) (int, error) {
	const op = "service.gateway.toAdmins"
	msg, err := encodePayload(payload, map[string]any{
		"timestamp": domain.FormatTimestamp(g.now()),
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	admins, err := g.users.GetUsersByRole(ctx, domain.RoleAdmin)
	if err != nil {
		g.log.Error("failed to resolve admins", slog.String("op", op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	delivered := 0
	for _, admin := range admins {
		delivered += g.deliver(op, g.doctors.Connections(admin.ID), msg, nil)
	}
	return delivered, nil
}

// BroadcastToRoom writes to both sides of the room, skipping exclude.
func (g *Gateway) BroadcastToRoom(consultationID string, payload any, exclude *Session) int {
	const op = "service.gateway.toRoom"
	msg, err := encodePayload(payload, nil)
	if err != nil {
		g.log.Error("cannot encode payload", slog.String("op", op), sl.Err(err))
		return 0
	}
	n, _ := g.toRoom(consultationID, msg, exclude)
	return n
}

// BroadcastToAll writes to every session in the doctor index. It is meant
// for non-clinical system announcements.
func (g *Gateway) BroadcastToAll(payload any) int {
	const op = "service.gateway.toAll"
	msg, err := encodePayload(payload, nil)
	if err != nil {
		g.log.Error("cannot encode payload", slog.String("op", op), sl.Err(err))
		return 0
	}
	return g.deliver(op, g.doctors.All(), msg, nil)
}

// toRoom reports false when the room does not exist.
func (g *Gateway) toRoom(consultationID string, msg []byte, exclude *Session) (int, bool) {
	members, ok := g.rooms.AllConnections(consultationID)
	if !ok {
		return 0, false
	}
	return g.deliver("service.gateway.toRoom", members, msg, exclude), true
}

// toSide reports false when the room does not exist.
func (g *Gateway) toSide(consultationID string, side domain.Side, msg []byte) (int, bool) {
	members, ok := g.rooms.Members(consultationID, side)
	if !ok {
		return 0, false
	}
	return g.deliver("service.gateway.toSide", members, msg, nil), true
}

func (g *Gateway) deliver(op string, targets []*Session, msg []byte, exclude *Session) int {
	delivered := 0
	for _, sess := range targets {
		if exclude != nil && sess.ID() == exclude.ID() {
			continue
		}
		conn := sess.Conn()
		if !conn.Open() {
			// Stale; the owning read loop prunes it on close.
			g.log.Debug("skipping closed connection", slog.String("op", op), slog.String("conn_id", sess.ID()))
			continue
		}
		if err := conn.Send(msg); err != nil {
			if errors.Is(err, ErrSendBufferFull) {
				g.log.Warn("dropping message, send buffer full",
					slog.String("op", op),
					slog.String("conn_id", sess.ID()),
				)
			} else {
				g.log.Debug("send failed", slog.String("op", op), slog.String("conn_id", sess.ID()), sl.Err(err))
			}
			continue
		}
		delivered++
	}
	return delivered
}

// encodePayload marshals payload. When extra is set the payload must be a
// JSON object and extra keys are merged over it.
func encodePayload(payload any, extra map[string]any) ([]byte, error) {
	var raw []byte
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if len(extra) == 0 {
		if !json.Valid(raw) {
			return nil, errors.New("payload is not valid JSON")
		}
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrPayloadNotObject
	}
	out := make(map[string]any, len(fields)+len(extra))
	for k, v := range fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return json.Marshal(out)
}
