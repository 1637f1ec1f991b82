package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  uri: "mongodb://localhost:27017"
  dbname: "jewgo"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 15*time.Minute, cfg.CursorTTL())
	assert.Equal(t, 2*time.Second, cfg.PrefetchCooldown())
	assert.Equal(t, 25*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, 30*time.Second, cfg.HeartbeatTimeout())
	assert.Equal(t, 64, cfg.Hub.SendBuffer)
	assert.Equal(t, 2*time.Minute, cfg.WarmerInterval())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  uri: "mongodb://localhost:27017"
  dbname: "jewgo"
server:
  port: 8080
`)

	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfigHotFilters(t *testing.T) {
	path := writeConfig(t, `
warmer:
  interval_seconds: 60
  hot_filters:
    - lat: 40.7128
      lon: -74.0060
      radius_meters: 5000
      category: "restaurant"
      open_now: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Warmer.HotFilters, 1)
	hf := cfg.Warmer.HotFilters[0]
	assert.Equal(t, 40.7128, hf.Lat)
	assert.Equal(t, "restaurant", hf.Category)
	assert.True(t, hf.OpenNow)
	assert.Equal(t, time.Minute, cfg.WarmerInterval())
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
search:
  default_page_size: 50
  max_page_size: 10
`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
hub:
  heartbeat_interval_seconds: 30
  heartbeat_timeout_seconds: 30
`))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
