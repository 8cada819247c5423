package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for testing.T.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadDefaultsWhenFileIsAbsent(t *testing.T) {
	t.Setenv("CONFIG_ENV", "absent")
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 2, cfg.MaxRelayLimit)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
	assert.False(t, cfg.TLS.Enabled)
}

func TestLoadReadsEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(`
mode: debug
port: 8443
ping_period: 30s
max_relay_limit: 4
tls:
  enabled: true
  cert_file: /etc/ssl/server.crt
  key_file: /etc/ssl/server.key
ice_servers:
  - urls: ["stun:stun.example.com"]
  - urls: ["turn:turn.example.com:3478"]
    username: u
    credential: p
`), 0o600))
	t.Setenv("CONFIG_ENV", "test")
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.PingPeriod)
	assert.Equal(t, 4, cfg.MaxRelayLimit)
	assert.True(t, cfg.TLS.Enabled)
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, "u", cfg.ICEServers[1].Username)
	assert.Equal(t, "p", cfg.ICEServers[1].Credential)
}
