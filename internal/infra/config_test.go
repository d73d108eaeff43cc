package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // без config.yaml — работаем на дефолтах

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int32(15), cfg.Database.MaxConns)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 3, cfg.Workflow.ConflictRetries)
	assert.Equal(t, 5*time.Minute, cfg.Workflow.RoleCacheTTL)
	assert.Equal(t, 1000, cfg.Workflow.AuditBufferSize)
	assert.Equal(t, "https://discord.com/api/v10", cfg.Discord.BaseURL)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9100
workflow:
  conflict_retries: 5
  role_cache_ttl: 30s
discord:
  use_mock: true
logger:
  level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Chdir(dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Workflow.ConflictRetries)
	assert.Equal(t, 30*time.Second, cfg.Workflow.RoleCacheTTL)
	assert.True(t, cfg.Discord.UseMock)
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Незатронутые значения остаются дефолтными
	assert.Equal(t, int32(15), cfg.Database.MaxConns)
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9200")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestAuthKeyFromEnvData(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), cfg.Auth.PublicKey)
}
