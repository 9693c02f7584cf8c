package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "telemed-api"
	testAudience = "telemed-signal"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeConn struct {
	id string

	mu     sync.Mutex
	closed bool
	full   bool
	sent   [][]byte
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.full {
		return ErrSendBufferFull
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.sent))
	for _, raw := range c.sent {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type fakeDirectory struct {
	users map[domain.Role][]*domain.User
	err   error
	calls int
}

func (d *fakeDirectory) GetUsersByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.users[role], nil
}

// harness wires the service graph the way cmd/main.go does.
type harness struct {
	tokens  *TokenService
	doctors *DoctorRegistry
	rooms   *RoomRegistry
	gateway *Gateway
	router  *MessageRouter
	signals *SignalService
	dir     *fakeDirectory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := &fakeDirectory{users: map[domain.Role][]*domain.User{}}
	tokens := NewTokenService(TokenConfig{
		Secret:   testSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
		Leeway:   time.Second,
	})
	doctors := NewDoctorRegistry(discardLog)
	rooms := NewRoomRegistry(discardLog)
	gateway := NewGateway(doctors, rooms, dir, discardLog)
	router := NewMessageRouter(rooms, gateway, discardLog)
	return &harness{
		tokens:  tokens,
		doctors: doctors,
		rooms:   rooms,
		gateway: gateway,
		router:  router,
		signals: NewSignalService(tokens, doctors, rooms, router, discardLog),
		dir:     dir,
	}
}

func (h *harness) token(t *testing.T, claims TokenClaims) string {
	t.Helper()
	tok, err := h.tokens.Issue(claims, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) connect(t *testing.T, connID string, claims TokenClaims) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn(connID)
	sess, err := h.signals.Connect(h.token(t, claims), conn)
	require.NoError(t, err)
	return sess, conn
}

func (h *harness) doctor(t *testing.T, connID, doctorID string) (*Session, *fakeConn) {
	return h.connect(t, connID, TokenClaims{Type: TokenTypeDoctor, DoctorID: ClaimID(doctorID)})
}

func (h *harness) patient(t *testing.T, connID, patientID, consultationID string) (*Session, *fakeConn) {
	return h.connect(t, connID, TokenClaims{
		Type:           TokenTypePatient,
		PatientID:      ClaimID(patientID),
		ConsultationID: ClaimID(consultationID),
	})
}

func (h *harness) visitor(t *testing.T, connID, visitorID string) (*Session, *fakeConn) {
	return h.connect(t, connID, TokenClaims{Type: TokenTypeVisitor, VisitorID: ClaimID(visitorID)})
}

func (h *harness) send(t *testing.T, sess *Session, frame map[string]any) error {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	return h.signals.Handle(sess, raw)
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}
