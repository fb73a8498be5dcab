//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/riskgrid/parcel-risk-service/internal/adapter/kafka"
	"github.com/riskgrid/parcel-risk-service/internal/config"
	"github.com/riskgrid/parcel-risk-service/internal/index"
	"github.com/riskgrid/parcel-risk-service/internal/loader"
	"github.com/riskgrid/parcel-risk-service/internal/observability"
)

const testRefreshTopic = "test-hazard-layer-updates"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("parcel-risk-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates the refresh topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func writeLayer(t *testing.T, dir, name, sourceID string) {
	t.Helper()
	content := fmt.Sprintf(`{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"source_id": %q, "severity": "high"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-106.8, 34.8], [-106.2, 34.8], [-106.2, 35.4], [-106.8, 35.4], [-106.8, 34.8]]]
      }
    }
  ]
}`, sourceID)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func publishNotification(ctx context.Context, t *testing.T, broker, key string) {
	t.Helper()
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testRefreshTopic,
	}
	defer producer.Close()

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: []byte(`{"reason":"layers updated"}`),
	}))
}

// TestLayerRefresh verifies the end-to-end refresh path: a notification on
// the refresh topic triggers a reload of the layer directory and an atomic
// index swap, while a failing reload keeps the previous snapshot serving.
func TestLayerRefresh(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRefreshTopic)

	zonesDir := t.TempDir()
	writeLayer(t, zonesDir, "flood.geojson", "fema-001")

	metrics := observability.NewMetricsForTesting()
	l := loader.New(zonesDir, "EPSG:4326", discardLogger(), metrics)
	holder := index.NewHolder()

	reload := func(ctx context.Context) error {
		zones, err := l.Load(ctx)
		if err != nil {
			return err
		}
		ix, err := index.Build(zones)
		if err != nil {
			return err
		}
		holder.Swap(ix)
		return nil
	}
	require.NoError(t, reload(ctx))

	ix, ok := holder.Snapshot()
	require.True(t, ok)
	require.Equal(t, 1, ix.Size())

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaRefreshTopic: testRefreshTopic,
		KafkaGroupID:      fmt.Sprintf("test-refresh-%d", time.Now().UnixNano()),
		KafkaEnabled:      true,
	}
	refresher := kafka.NewRefresher(cfg, reload, discardLogger())
	t.Cleanup(func() { _ = refresher.Close() })

	runCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	errCh := make(chan error, 1)
	go func() { errCh <- refresher.Run(runCtx) }()

	// Grow the dataset, then notify.
	writeLayer(t, zonesDir, "wildfire.geojson", "usfs-112")
	publishNotification(ctx, t, broker, "update-1")

	require.Eventually(t, func() bool {
		ix, ok := holder.Snapshot()
		return ok && ix.Size() == 2
	}, 60*time.Second, 250*time.Millisecond, "index should pick up the new layer")

	// Break the dataset: the reload fails and the last good snapshot stays.
	require.NoError(t, os.Remove(filepath.Join(zonesDir, "flood.geojson")))
	require.NoError(t, os.Remove(filepath.Join(zonesDir, "wildfire.geojson")))
	publishNotification(ctx, t, broker, "update-2")

	// Restore one layer and notify again: the consumer survived the failed
	// reload and applies the next good dataset.
	time.Sleep(2 * time.Second)
	ix, ok = holder.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 2, ix.Size(), "failed reload must keep the previous snapshot")

	writeLayer(t, zonesDir, "flood.geojson", "fema-002")
	publishNotification(ctx, t, broker, "update-3")

	require.Eventually(t, func() bool {
		ix, ok := holder.Snapshot()
		return ok && ix.Size() == 1
	}, 60*time.Second, 250*time.Millisecond, "consumer should keep serving after a failed reload")

	stopConsumer()
	require.NoError(t, <-errCh)
}
