package http

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/medsignal/internal/service"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
)

// wsConn adapts a websocket to service.Conn. Writes go through a bounded
// channel drained by writePump; a full channel drops the message instead of
// blocking the caller.
type wsConn struct {
	id         string
	socket     *websocket.Conn
	send       chan []byte
	done       chan struct{}
	open       atomic.Bool
	closeOnce  sync.Once
	writeWait  time.Duration
	pingPeriod time.Duration
	log        *slog.Logger
}

var _ service.Conn = (*wsConn)(nil)

func newWSConn(socket *websocket.Conn, buffer int, writeWait, pingPeriod time.Duration, log *slog.Logger) *wsConn {
	c := &wsConn{
		id:         uuid.New().String(),
		socket:     socket,
		send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
		writeWait:  writeWait,
		pingPeriod: pingPeriod,
		log:        log,
	}
	c.open.Store(true)
	return c
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Open() bool {
	return c.open.Load()
}

func (c *wsConn) Send(payload []byte) error {
	if !c.open.Load() {
		return service.ErrConnClosed
	}
	select {
	case <-c.done:
		return service.ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return service.ErrSendBufferFull
	}
}

// writePump is the only goroutine writing data frames to the socket.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
		c.socket.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write failed", slog.String("conn_id", c.id), sl.Err(err))
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.socket.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait),
			)
			return
		}
	}
}

// shutdown marks the connection closed. Queued messages are discarded.
func (c *wsConn) shutdown() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
	})
}
