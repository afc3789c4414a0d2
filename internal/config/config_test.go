package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8886", cfg.HTTP.Addr)
	assert.Equal(t, "https://lighthousetv.ewscloud.com", cfg.Cloud.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Cloud.RequestTimeout)
	assert.Equal(t, "./data/bridge.db", cfg.Storage.Path)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  addr: ":9000"
cloud:
  base_url: "http://cloud.test"
  request_timeout: 3s
auth:
  enabled: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "http://cloud.test", cfg.Cloud.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Cloud.RequestTimeout)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "./data/bridge.db", cfg.Storage.Path)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [not: a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
