package service

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/medsignal/internal/domain"
)

var (
	ErrConnClosed       = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrPayloadNotObject = errors.New("payload must be a JSON object")
)

// Conn is the write side of a live transport. Implementations must not
// block in Send.
type Conn interface {
	ID() string
	Open() bool
	Send(payload []byte) error
}

// Broadcaster is the notification surface offered to the CRUD layer.
type Broadcaster interface {
	BroadcastToDoctor(doctorID string, payload any) int
	BroadcastToAdmins(ctx context.Context, payload any) (int, error)
	BroadcastToRoom(consultationID string, payload any, exclude *Session) int
	BroadcastToAll(payload any) int
}

type SignalInteractor interface {
	Connect(token string, conn Conn) (*Session, error)
	Handle(sess *Session, raw []byte) error
	Disconnect(sess *Session)
	Stats() domain.RoomStats
}
