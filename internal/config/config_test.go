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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.GRPC.Address)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.GRPC.KeepaliveTime)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "classic", cfg.Engine.DefaultVariant)
	assert.False(t, cfg.Database.Persistent())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc:
    address: ":6000"
  http:
    request_timeout: 5s
database:
  url: postgres://rails@localhost/rails
  max_conns: 4
  min_conns: 1
logging:
  level: debug
  format: console
engine:
  default_variant: gb
  strict_checks: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.GRPC.Address)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.HTTP.RequestTimeout)
	assert.True(t, cfg.Database.Persistent())
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gb", cfg.Engine.DefaultVariant)
	assert.True(t, cfg.Engine.StrictChecks)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")
	t.Setenv("RAILS_LOGGING_LEVEL", "warn")
	t.Setenv("RAILS_SERVER_HTTP_ADDRESS", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.HTTP.Address)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"pool bounds", "database:\n  max_conns: 1\n  min_conns: 5\n"},
		{"negative games", "engine:\n  max_games: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
