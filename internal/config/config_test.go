package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "chess", cfg.DataChannelLabel)
	require.Equal(t, 54*time.Second, cfg.PingPeriod)
	require.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers)
	require.Equal(t, "peerchess:", cfg.History.KeyPrefix)
	require.Empty(t, cfg.History.RedisURL)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	body := "port: 9090\n" +
		"ice_servers:\n  - stun:example.org:3478\n" +
		"chat_rate_interval: 2s\n" +
		"history:\n  redis_url: redis://localhost:6379/1\n  ttl: 1h\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, []string{"stun:example.org:3478"}, cfg.ICEServers)
	require.Equal(t, 2*time.Second, cfg.ChatRateInterval)
	require.Equal(t, "redis://localhost:6379/1", cfg.History.RedisURL)
	require.Equal(t, time.Hour, cfg.History.TTL)
	require.Equal(t, "chess", cfg.DataChannelLabel)
}

func TestRejectsNonPositiveRateLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chat_rate_limit: 0\n"), 0o600))
	_, err := LoadFile(path)
	require.Error(t, err)
}
