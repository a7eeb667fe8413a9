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

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	require.NoError(t, cfg.Validate())

	server := cfg.GetServer()
	assert.Equal(t, []string{"http"}, server.Listeners)
	assert.Equal(t, int64(1<<20), server.HTTP.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, server.HTTP.ShutdownTimeout)

	classifier := cfg.GetClassifier()
	assert.Equal(t, "local", classifier.URLProvider)
	assert.Equal(t, "local", classifier.EmailProvider)
	assert.Equal(t, 4096, classifier.MaxEmailSize)
	assert.Empty(t, classifier.URLWeights)

	cache := cfg.GetCache()
	assert.False(t, cache.Enabled)
	assert.Equal(t, 24*time.Hour, cache.TTL)

	assert.Equal(t, 30*time.Second, cfg.GetBedrock().Timeout)
	assert.Equal(t, "X-Phishing-Status", cfg.GetSMTP().StatusHeader)
	assert.Empty(t, cfg.GetStringSlice("whitelist.domains"))
}

func TestShippedConfigHasEmptyAllowList(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.GetStringSlice("whitelist.domains"))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listeners: [http, smtp]
classifier:
  url:
    provider: remote
    weights:
      has_ip: 5
      https: -1.25
remote:
  base_url: http://models:9000
  timeout: 2s
cache:
  enabled: true
  type: redis
  redis:
    address: redis:6379
    db: 2
whitelist:
  domains: [example.com, github.com]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"http", "smtp"}, cfg.GetServer().Listeners)
	classifier := cfg.GetClassifier()
	assert.Equal(t, "remote", classifier.URLProvider)
	assert.Equal(t, map[string]float64{"has_ip": 5, "https": -1.25}, classifier.URLWeights)

	remote := cfg.GetRemote()
	assert.Equal(t, "http://models:9000", remote.BaseURL)
	assert.Equal(t, 2*time.Second, remote.Timeout)

	cache := cfg.GetCache()
	assert.True(t, cache.Enabled)
	assert.Equal(t, "redis", cache.Type)
	assert.Equal(t, "redis:6379", cache.RedisAddress)
	assert.Equal(t, 2, cache.RedisDB)

	assert.Equal(t, []string{"example.com", "github.com"}, cfg.GetStringSlice("whitelist.domains"))
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "cache:\n  ttl: forever\n"))
	assert.ErrorContains(t, err, "cache.ttl")

	_, err = Load(writeConfig(t, "classifier:\n  url:\n    weights:\n      has_ip: lots\n"))
	assert.ErrorContains(t, err, "weights")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PHISH_GUARD_CLASSIFIER_EMAIL_PROVIDER", "openai")
	t.Setenv("PHISH_GUARD_OPENAI_TIMEOUT", "3s")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.GetClassifier().EmailProvider)
	assert.Equal(t, 3*time.Second, cfg.GetOpenAI().Timeout)
	assert.Equal(t, "debug", cfg.GetString("logging.level"))
}
