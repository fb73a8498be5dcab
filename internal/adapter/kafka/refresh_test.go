package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskgrid/parcel-risk-service/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRefresher(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:      []string{"broker1:9092"},
		KafkaRefreshTopic: "hazard-layer-updates",
		KafkaGroupID:      "parcel-risk-service",
	}

	r := NewRefresher(cfg, func(context.Context) error { return nil }, discardLogger())
	t.Cleanup(func() { _ = r.Close() })

	rc := r.reader.Config()
	assert.Equal(t, []string{"broker1:9092"}, rc.Brokers)
	assert.Equal(t, "hazard-layer-updates", rc.Topic)
	assert.Equal(t, "parcel-risk-service", rc.GroupID)
}

func TestNextBackoff(t *testing.T) {
	maxBackoff := 5 * time.Second

	assert.Equal(t, 400*time.Millisecond, nextBackoff(200*time.Millisecond, maxBackoff))
	assert.Equal(t, 800*time.Millisecond, nextBackoff(400*time.Millisecond, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(3*time.Second, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff, maxBackoff))
}

func TestSleepWithContext(t *testing.T) {
	t.Run("zero duration returns immediately", func(t *testing.T) {
		assert.True(t, sleepWithContext(context.Background(), 0))
	})

	t.Run("completes the sleep", func(t *testing.T) {
		start := time.Now()
		require.True(t, sleepWithContext(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancelled context aborts the sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, sleepWithContext(ctx, time.Minute))
	})
}
