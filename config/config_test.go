package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.RateLimit.Max)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.Freshness)
	assert.Equal(t, 2048, cfg.Engine.MaxTokens)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "*", cfg.CORS.AllowOrigin)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
engine:
  provider: gemini
  min_interval: 250ms
rate_limit:
  max: 5
  window: 30m
cache:
  enabled: true
  freshness: 48h
`), 0o600))

	t.Setenv("RATE_MAX", "7")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.Engine.Provider)
	assert.Equal(t, "g-key", cfg.Engine.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.MinInterval)
	assert.Equal(t, 7, cfg.RateLimit.Max, "env wins over file")
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.Cache.Freshness)
	assert.Equal(t, 2048, cfg.Engine.MaxTokens, "defaults survive partial files")
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Engine.APIKey)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Engine.Provider = "openai" }},
		{"rate max", func(c *Config) { c.RateLimit.Max = 0 }},
		{"rate backend", func(c *Config) { c.RateLimit.Backend = "etcd" }},
		{"redis addr", func(c *Config) { c.RateLimit.Backend = "redis" }},
		{"cache backend", func(c *Config) { c.Cache.Backend = "disk" }},
		{"postgres url", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Backend = "postgres"
		}},
		{"concurrency", func(c *Config) { c.Concurrency.Max = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DisabledRateLimitIgnoresMax(t *testing.T) {
	cfg := Defaults()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Max = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit: [not a map"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
