package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "testdata/does-not-exist.env")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultDomainDuration, cfg.Registry.DomainDuration)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "namereg.registry.events", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultEventBuffer, cfg.Registry.EventBuffer)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", "testdata/does-not-exist.env")
	t.Setenv("NAMEREG_ADDR", ":9090")
	t.Setenv("NAMEREG_DOMAIN_DURATION", "0s")
	t.Setenv("DATABASE_URL", "postgres://localhost/namereg")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("REDIS_NAME_TTL", "90s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, time.Duration(0), cfg.Registry.DomainDuration)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Redis.NameTTL)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("ENV_FILE", "testdata/does-not-exist.env")

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("NAMEREG_DOMAIN_DURATION", "forever")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "NAMEREG_DOMAIN_DURATION")
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Setenv("NAMEREG_DOMAIN_DURATION", "-1h")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unbounded event buffer", func(t *testing.T) {
		t.Setenv("NAMEREG_EVENT_BUFFER", "0")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "NAMEREG_EVENT_BUFFER")
	})

	t.Run("kafka without database", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "localhost:9092")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
}
