package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMustLoadPathAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "env: dev\nauth:\n  secret: s3cret\n")

	cfg := MustLoadPath(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "telemed-api", cfg.Auth.Issuer)
	assert.Equal(t, "telemed-signal", cfg.Auth.Audience)
	assert.Equal(t, 30*time.Second, cfg.Auth.Leeway)
	assert.Equal(t, "/ws", cfg.WS.Path)
	assert.Equal(t, 64, cfg.WS.SendBuffer)
	assert.Equal(t, int64(65536), cfg.WS.MaxMessageBytes)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.WebRTC.STUNServers)
	assert.Less(t, cfg.WS.PingPeriod(), cfg.WS.PongWait)
}

func TestMustLoadPathReadsSections(t *testing.T) {
	path := writeConfig(t, `
env: prod
http:
  address: ":9000"
ws:
  send_buffer: 8
  pong_wait: 20s
internal:
  api_key: k
admins:
  - a1
  - a2
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 8, cfg.WS.SendBuffer)
	assert.Equal(t, 20*time.Second, cfg.WS.PongWait)
	assert.Equal(t, "k", cfg.Internal.APIKey)
	assert.Equal(t, []string{"a1", "a2"}, cfg.Admins)
}

func TestMustLoadPathPanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
