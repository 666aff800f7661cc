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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  env: test
  port: 8080
mongodb:
  uri: mongodb://localhost:27017
  database: assets
aws:
  region: eu-north-1
  bucket: asset-files
jwt:
  public_key_path: /etc/keys/jwt.pub
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "records", cfg.Mongo.Collection)
	assert.Equal(t, 600, cfg.S3.PresignTTL)
	assert.Equal(t, cfg.S3.PresignTTL, cfg.Redis.URLCacheTTL)
	assert.Equal(t, 300, cfg.RateLimit.IPPerMinute)
	assert.Equal(t, 30, cfg.RateLimit.UploadPerMin)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.PresignTTL)
	assert.False(t, cfg.Reconcile.VerifyExisting)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
app:
  port: 9000
  shutdown_seconds: 5
mongodb:
  uri: mongodb://localhost:27017
  database: assets
  collection: custom
s3:
  presign_ttl_seconds: 120
redis:
  url_cache_ttl_seconds: 60
reconcile:
  verify_existing: true
  abort_on_delete_failure: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.Mongo.Collection)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PresignTTL)
	assert.Equal(t, time.Minute, cfg.URLCacheTTL)
	assert.True(t, cfg.Reconcile.VerifyExisting)
	assert.True(t, cfg.Reconcile.AbortOnDeleteFailure)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
