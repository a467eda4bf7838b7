// Package kafka publishes artifact notifications to downstream consumers
// (alerting, tiling, archival) over a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/pipeline"
)

// Notifier produces artifact records to the notification topic.
// It implements pipeline.ArtifactNotifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured notification topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.NotifyTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifyArtifact serializes and publishes one artifact record. The artifact
// path keys the message so records for the same output land in order.
func (n *Notifier) NotifyArtifact(ctx context.Context, artifact pipeline.Artifact) error {
	msg, err := serializeToMessage(artifact)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish artifact notification: %w", err)
	}
	n.logger.Debug("artifact notification published", "kind", artifact.Kind, "path", artifact.Path)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an Artifact into a Kafka message.
func serializeToMessage(artifact pipeline.Artifact) (kafkago.Message, error) {
	data, err := json.Marshal(artifact)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize artifact: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "kind", Value: []byte(artifact.Kind)},
		{Key: "run_id", Value: []byte(artifact.RunID)},
		{Key: "written_at", Value: []byte(artifact.WrittenAt.Format(time.RFC3339))},
	}
	if artifact.ForecastDay > 0 {
		headers = append(headers, kafkago.Header{
			Key: "forecast_day", Value: []byte(strconv.Itoa(artifact.ForecastDay)),
		})
	}
	return kafkago.Message{
		Key:     []byte(artifact.Path),
		Value:   data,
		Headers: headers,
	}, nil
}
