package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "ristretto", cfg.Cache.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DocumentTTL)
	assert.Equal(t, 10, cfg.Scheduler.JobsPerTick)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CAMPAIGN_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SCHEDULER_INTERVAL", "2s")
	t.Setenv("CACHE_PROVIDER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, "redis", cfg.Cache.Provider)
}

func TestValidate(t *testing.T) {
	t.Run("production refuses dev admin token", func(t *testing.T) {
		t.Setenv("CAMPAIGN_ENV", "production")
		_, err := FromEnv()
		require.ErrorContains(t, err, "ADMIN_TOKEN")
	})

	t.Run("redis provider needs a url", func(t *testing.T) {
		t.Setenv("CACHE_PROVIDER", "redis")
		_, err := FromEnv()
		require.ErrorContains(t, err, "REDIS_URL")
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("CACHE_PROVIDER", "memcached")
		_, err := FromEnv()
		require.ErrorContains(t, err, "CACHE_PROVIDER")
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("SCHEDULER_INTERVAL", "soon")
		_, err := FromEnv()
		require.ErrorContains(t, err, "parse env")
	})
}
