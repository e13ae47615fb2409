package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHURN_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.Address)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "drop", cfg.Dataset.InvalidRows)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ResultTTL)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  httpAddress: ":9090"
  corsOrigins: ["https://dashboard.example.com"]
dataset:
  path: /data/churn.csv
  invalidRows: reject
cache:
  backend: redis
  addr: localhost:6379
  resultTTL: 1m
`), 0o644))

	t.Setenv("CHURN_CACHE_TTL", "30s")
	t.Setenv("CHURN_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CHURN_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddress)
	assert.Equal(t, ":50051", cfg.Server.Address, "unset keys keep defaults")
	assert.Equal(t, "/data/churn.csv", cfg.Dataset.Path)
	assert.Equal(t, "reject", cfg.Dataset.InvalidRows)
	assert.Equal(t, 30*time.Second, cfg.Cache.ResultTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dataset.InvalidRows = "ignore"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Cache.Backend = CacheRedis
	assert.Error(t, cfg.Validate(), "redis without an address")

	cfg.Cache.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}
