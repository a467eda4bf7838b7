//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/landslide-riskmap/internal/adapter/kafka"
	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/pipeline"
)

const testNotifyTopic = "test-artifact-notifications"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID(fmt.Sprintf("test-cluster-%d", time.Now().UnixNano())))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic on the container's controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// notification holds one deserialized record read off the notify topic.
type notification struct {
	Artifact pipeline.Artifact
	Key      string
	Headers  map[string]string
}

func readNotification(ctx context.Context, t *testing.T, consumer *kafkago.Reader) notification {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from notify topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var artifact pipeline.Artifact
	require.NoError(t, json.Unmarshal(msg.Value, &artifact), "unmarshal notification")

	return notification{Artifact: artifact, Key: string(msg.Key), Headers: headers}
}

// TestNotifierRoundTrip verifies that published artifact records survive the
// trip through a real broker with key, headers, and payload intact.
func TestNotifierRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testNotifyTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		NotifyTopic:  testNotifyTopic,
	}

	notifier := kafka.NewNotifier(cfg, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	writtenAt := time.Date(2026, 7, 14, 9, 30, 0, 0, time.UTC)
	artifacts := []pipeline.Artifact{
		{
			RunID:     "run-42",
			Kind:      "base_map",
			Path:      "/data/processed/landslide_base_map.tif",
			WrittenAt: writtenAt,
		},
		{
			RunID:       "run-42",
			Kind:        "final_map",
			Path:        "/data/output/3_day_landslide_map_FINAL.tif",
			Date:        "2026-07-17",
			ForecastDay: 3,
			WrittenAt:   writtenAt,
		},
	}
	for _, a := range artifacts {
		require.NoError(t, notifier.NotifyArtifact(ctx, a))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testNotifyTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readNotification(ctx, t, consumer)
	assert.Equal(t, "/data/processed/landslide_base_map.tif", first.Key)
	assert.Equal(t, "base_map", first.Headers["kind"])
	assert.Equal(t, "run-42", first.Headers["run_id"])
	assert.NotContains(t, first.Headers, "forecast_day")
	assert.Equal(t, artifacts[0], first.Artifact)

	_, err := time.Parse(time.RFC3339, first.Headers["written_at"])
	assert.NoError(t, err, "written_at should be valid RFC3339")

	second := readNotification(ctx, t, consumer)
	assert.Equal(t, "/data/output/3_day_landslide_map_FINAL.tif", second.Key)
	assert.Equal(t, "final_map", second.Headers["kind"])
	assert.Equal(t, "3", second.Headers["forecast_day"])
	assert.Equal(t, artifacts[1], second.Artifact)
}
