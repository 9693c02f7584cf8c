package service

import (
	"errors"
	"testing"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRegistersDoctorChannels(t *testing.T) {
	h := newHarness(t)

	docSess, _ := h.doctor(t, "d", "D1")
	adminSess, _ := h.connect(t, "a", TokenClaims{Type: TokenTypeDoctor, DoctorID: "A1", Role: "admin"})
	patSess, _ := h.patient(t, "p", "P1", "C1")
	visSess, _ := h.visitor(t, "v", "V1")

	assert.True(t, h.doctors.Has("D1"))
	assert.True(t, h.doctors.Has("A1"))
	assert.False(t, h.doctors.Has("P1"))
	assert.False(t, h.doctors.Has("V1"))

	for _, s := range []*Session{docSess, adminSess, patSess, visSess} {
		assert.Equal(t, domain.ConnStateAuthenticated, s.State())
	}
	assert.Equal(t, domain.RoomStats{Rooms: 0, Doctors: 2, Connections: 2}, h.signals.Stats())
}

func TestConnectRejectsBadToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.signals.Connect("", newFakeConn("x"))
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, ReasonTokenRequired, authErr.Reason)

	_, err = h.signals.Connect(h.token(t, TokenClaims{Type: "nurse"}), newFakeConn("y"))
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, ReasonInvalidTokenType, authErr.Reason)

	doctors, _ := h.doctors.Counts()
	assert.Equal(t, 0, doctors)
}

func TestDisconnectPrunesEveryRegistry(t *testing.T) {
	h := newHarness(t)
	docSess, _ := h.doctor(t, "d", "D1")
	patSess, pat := h.patient(t, "p", "P1", "C1")

	require.NoError(t, h.send(t, docSess, map[string]any{"type": "join-room", "consultationId": "C1"}))
	require.NoError(t, h.send(t, docSess, map[string]any{"type": "join-room", "consultationId": "C7"}))
	require.NoError(t, h.send(t, patSess, map[string]any{"type": "join-room"}))
	pat.reset()

	h.signals.Disconnect(docSess)

	assert.Equal(t, domain.ConnStateClosed, docSess.State())
	assert.False(t, h.doctors.Has("D1"))
	assert.False(t, h.rooms.Exists("C7"))
	assert.True(t, h.rooms.Exists("C1"))
	docs, _ := h.rooms.Members("C1", domain.SideDoctor)
	assert.Empty(t, docs)

	msgs := pat.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user-left", msgs[0]["type"])
	assert.Equal(t, "D1", msgs[0]["fromId"])

	h.signals.Disconnect(patSess)
	assert.False(t, h.rooms.Exists("C1"))
	assert.Equal(t, domain.RoomStats{}, h.signals.Stats())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h := newHarness(t)
	docSess, _ := h.doctor(t, "d", "D1")
	other, _ := h.doctor(t, "d2", "D1")

	h.signals.Disconnect(docSess)
	h.signals.Disconnect(docSess)

	assert.Len(t, h.doctors.Connections("D1"), 1)
	assert.Equal(t, other.ID(), h.doctors.Connections("D1")[0].ID())
}

func TestHandleAfterDisconnectIsRejected(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.visitor(t, "v", "V1")
	h.signals.Disconnect(sess)

	err := h.send(t, sess, map[string]any{"type": "join-room", "consultationId": "C1"})
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, h.rooms.Exists("C1"))
}
