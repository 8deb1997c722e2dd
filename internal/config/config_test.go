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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Extract.MaxURLs)
	assert.Equal(t, "live", cfg.Extract.Mode)
	assert.Equal(t, "chromedp", cfg.Renderer.Provider)
	assert.Equal(t, 1280, cfg.Renderer.ViewportWidth)
	assert.Equal(t, "memory", cfg.DB.Provider)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, "memory", cfg.Queue.Provider)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 45*time.Second, cfg.NavTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.IdleWindow())
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  allowed_origins: ["https://brace.to"]
  require_referrer: true
extract:
  max_urls: 5
  mode: deferred
  workers: 3
renderer:
  provider: static
  viewport_width: 1024
storage:
  provider: gcs
  gcs_bucket: bracekit-extracts
db:
  provider: postgres
  dsn: postgres://localhost/extracts
queue:
  provider: pubsub
  project_id: bracekit
  topic_id: pre-extract
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://brace.to"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.RequireReferrer)
	assert.Equal(t, 5, cfg.Extract.MaxURLs)
	assert.Equal(t, "deferred", cfg.Extract.Mode)
	assert.Equal(t, 3, cfg.Extract.Workers)
	assert.Equal(t, "static", cfg.Renderer.Provider)
	assert.Equal(t, 1024, cfg.Renderer.ViewportWidth)
	assert.Equal(t, "bracekit-extracts", cfg.Storage.GCSBucket)
	assert.Equal(t, "postgres", cfg.DB.Provider)
	assert.Equal(t, "pubsub", cfg.Queue.Provider)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "bad max urls", mutate: func(c *Config) { c.Extract.MaxURLs = 0 }},
		{name: "bad mode", mutate: func(c *Config) { c.Extract.Mode = "bogus" }},
		{name: "negative workers", mutate: func(c *Config) { c.Extract.Workers = -1 }},
		{name: "bad renderer", mutate: func(c *Config) { c.Renderer.Provider = "phantomjs" }},
		{name: "bad viewport", mutate: func(c *Config) { c.Renderer.ViewportWidth = 0 }},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Provider = "gcs" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.DB.Provider = "postgres" }},
		{name: "pubsub without topic", mutate: func(c *Config) { c.Queue.Provider = "pubsub" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
