package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/medsignal/internal/config"
	"github.com/immxrtalbeast/medsignal/internal/service"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
	"golang.org/x/time/rate"
)

const closeWriteWait = time.Second

type SignalController struct {
	signals  service.SignalInteractor
	cfg      config.WSConfig
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSignalController(signals service.SignalInteractor, cfg config.WSConfig, allowedOrigins []string, log *slog.Logger) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalController{
		signals: signals,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// Connect upgrades the request and runs the connection until it closes.
// The token is read before the upgrade but verified after it, so a rejected
// client receives a close code and reason instead of a bare HTTP error.
func (c *SignalController) Connect(ctx *gin.Context) {
	const op = "api.signal.connect"
	token := tokenFromRequest(ctx.Request)

	socket, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Debug("upgrade failed", slog.String("op", op), sl.Err(err))
		return
	}

	conn := newWSConn(socket, c.cfg.SendBuffer, c.cfg.WriteWait, c.cfg.PingPeriod(), c.log)
	log := c.log.With(slog.String("op", op), slog.String("conn_id", conn.ID()))

	sess, err := c.signals.Connect(token, conn)
	if err != nil {
		code, reason := closeFor(err)
		writeClose(socket, code, reason)
		conn.shutdown()
		socket.Close()
		return
	}

	go conn.writePump()
	defer func() {
		c.signals.Disconnect(sess)
		conn.shutdown()
	}()

	socket.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(c.cfg.MessagesPerSecond), c.cfg.MessageBurst)

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("connection dropped", sl.Err(err))
			}
			return
		}
		// Any inbound traffic proves liveness.
		_ = socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		if !limiter.Allow() {
			log.Warn("dropping frame, rate limit exceeded")
			continue
		}
		if err := c.signals.Handle(sess, data); err != nil {
			log.Debug("frame dropped", sl.Err(err))
		}
	}
}

// closeFor maps an authentication failure to a websocket close frame.
func closeFor(err error) (int, string) {
	var authErr *service.AuthError
	if !errors.As(err, &authErr) {
		return websocket.CloseInternalServerErr, service.ReasonMisconfigured
	}
	if authErr.Misconfigured() {
		return websocket.CloseInternalServerErr, authErr.Reason
	}
	return websocket.ClosePolicyViolation, authErr.Reason
}

func writeClose(socket *websocket.Conn, code int, reason string) {
	_ = socket.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(closeWriteWait))
}

// tokenFromRequest reads the bearer token from the token query parameter or
// the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Native clients send no Origin header.
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
