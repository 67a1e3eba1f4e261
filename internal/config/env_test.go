package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply defaults when nothing is set", func(t *testing.T) {
		cfg := LoadConfig()

		assert.Equal(t, "us-east-2", cfg.AwsRegion)
		assert.Equal(t, 50, cfg.DefaultPageSize)
		assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
		assert.Equal(t, "stop", cfg.BatchErrorPolicy)
	})

	t.Run("Should read typed values from the environment", func(t *testing.T) {
		t.Setenv("DEFAULT_PAGE_SIZE", "25")
		t.Setenv("SESSION_TTL", "90s")
		t.Setenv("LOG_JSON", "true")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")

		cfg := LoadConfig()

		assert.Equal(t, 25, cfg.DefaultPageSize)
		assert.Equal(t, 90*time.Second, cfg.SessionTTL)
		assert.True(t, cfg.LogJSON)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	})

	t.Run("Should fall back on malformed values", func(t *testing.T) {
		t.Setenv("SESSION_CAPACITY", "many")
		t.Setenv("SESSION_TTL", "soon")
		t.Setenv("LOG_JSON", "perhaps")

		cfg := LoadConfig()

		assert.Equal(t, 256, cfg.SessionCapacity)
		assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
		assert.False(t, cfg.LogJSON)
	})
}
