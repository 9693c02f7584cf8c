package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		typ     string
		cid     string
	}{
		{name: "offer with string id", raw: `{"type":"offer","consultationId":"C1","sdp":"v=0"}`, typ: "offer", cid: "C1"},
		{name: "numeric consultation id", raw: `{"type":"answer","consultationId":42}`, typ: "answer", cid: "42"},
		{name: "join without id", raw: `{"type":"join-room"}`, typ: "join-room"},
		{name: "not json", raw: `hello`, wantErr: ErrMalformedFrame},
		{name: "json array", raw: `[1,2]`, wantErr: ErrMalformedFrame},
		{name: "json null", raw: `null`, wantErr: ErrMalformedFrame},
		{name: "missing type", raw: `{"consultationId":"C1"}`, wantErr: ErrMissingType},
		{name: "non string type", raw: `{"type":7}`, wantErr: ErrMissingType},
		{name: "blank type", raw: `{"type":"  "}`, wantErr: ErrMissingType},
		{name: "object id ignored", raw: `{"type":"offer","consultationId":{"a":1}}`, typ: "offer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, f.Type)
			assert.Equal(t, tt.cid, f.ConsultationID)
		})
	}
}

func TestFrameStampedPassesFieldsThrough(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"offer","consultationId":"C1","sdp":{"type":"offer","sdp":"v=0"},"from":"spoofed"}`))
	require.NoError(t, err)

	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	out, err := f.Stamped(RoleDoctor, "D1", at)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "offer", got["type"])
	assert.Equal(t, "C1", got["consultationId"])
	assert.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, got["sdp"])
	assert.Equal(t, "doctor", got["from"])
	assert.Equal(t, "D1", got["fromId"])
	assert.Equal(t, "2026-10-14T09:30:00Z", got["timestamp"])
}

func TestConnStateTransitions(t *testing.T) {
	assert.True(t, ConnStateConnecting.CanTransition(ConnStateAuthenticated))
	assert.True(t, ConnStateConnecting.CanTransition(ConnStateClosed))
	assert.False(t, ConnStateConnecting.CanTransition(ConnStateJoined))
	assert.True(t, ConnStateAuthenticated.CanTransition(ConnStateJoined))
	assert.True(t, ConnStateJoined.CanTransition(ConnStateJoined))
	assert.False(t, ConnStateClosed.CanTransition(ConnStateClosed))
	assert.False(t, ConnStateClosed.CanTransition(ConnStateAuthenticated))
}

func TestIdentitySide(t *testing.T) {
	assert.Equal(t, SideDoctor, Identity{Role: RoleDoctor}.Side())
	assert.Equal(t, SideDoctor, Identity{Role: RoleAdmin}.Side())
	assert.Equal(t, SidePatient, Identity{Role: RolePatient}.Side())
	assert.Equal(t, SidePatient, Identity{Role: RoleVisitor}.Side())
	assert.Equal(t, SidePatient, SideDoctor.Opposite())
	assert.Equal(t, SideDoctor, SidePatient.Opposite())
}
