package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/session-runtime/internal/events"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("SESSION_TTL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Second, cfg.Session.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.Session.SubmittedRetention)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "Memory")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("BACKEND_RATE_LIMIT", "2.5")
	t.Setenv("TIME_WARNING_SECONDS", "120")
	t.Setenv("EVENTS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2.5, cfg.Backend.RateLimit)
	assert.Equal(t, 120, cfg.Session.TimeWarningSeconds)
	assert.True(t, cfg.Events.Enabled)
}

func TestLoadConfig_RejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "etcd")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_AuthRequiresCasdoor(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("CASDOOR_ENDPOINT", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestEventConfig(t *testing.T) {
	c := EventConfig{KafkaBrokers: "a:9092, b:9092,,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.GetKafkaBrokers())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub, err := c.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, pub)

	c.Enabled = true
	c.Publisher = "carrier-pigeon"
	pub, err = c.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, pub)
}
