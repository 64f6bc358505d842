package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"HTTP_ADDRESS", "INTERACTION_SINK", "PRIMARY_TIMEOUT", "KAFKA_BROKERS", "MAX_DURATION"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, SinkMemory, cfg.InteractionSink)
	require.Equal(t, 20*time.Second, cfg.PrimaryTimeout)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 120, cfg.MaxDuration)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTERACTION_SINK", "Kafka")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("PRIMARY_TIMEOUT", "3s")
	t.Setenv("MIN_DURATION", "15")
	t.Setenv("LOG_QUEUE_SIZE", "not-a-number")
	t.Setenv("OTEL_TRACES_SAMPLE_RATE", "0.25")

	cfg := Load()
	require.Equal(t, SinkKafka, cfg.InteractionSink)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 3*time.Second, cfg.PrimaryTimeout)
	require.Equal(t, 15, cfg.MinDuration)
	require.Equal(t, 256, cfg.LogQueueSize)
	require.InDelta(t, 0.25, cfg.TraceSampleRate, 1e-9)
}

func TestValidateReportsProblems(t *testing.T) {
	cfg := Config{
		InteractionSink: "carrier-pigeon",
		MinDuration:     60,
		MaxDuration:     30,
		LogQueueSize:    1,
		PlanTTL:         time.Hour,
		PreferenceTTL:   time.Hour,
		JWTSecret:       "s",
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "INTERACTION_SINK")
	require.ErrorContains(t, err, "duration bounds 60..30")
	require.ErrorContains(t, err, "PRIMARY_TIMEOUT")
}
