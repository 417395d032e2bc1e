// Package events publishes persisted-scan notifications.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
)

// Publisher publishes one message and waits for the server ack.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// TopicPublisher implements Publisher using a Pub/Sub topic.
type TopicPublisher struct {
	topic *pubsub.Topic
}

func NewTopicPublisher(topic *pubsub.Topic) *TopicPublisher {
	return &TopicPublisher{topic: topic}
}

func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	_, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	return err
}

// PubSubSink is a pipeline.Sink that publishes a ScanEvent for every Persisted
// outcome and ignores the rest. Publish failures are logged, never surfaced to
// the scan: the scan is already durable.
type PubSubSink struct {
	pub     Publisher
	timeout time.Duration
	logger  *slog.Logger
}

func NewPubSubSink(pub Publisher) *PubSubSink {
	return &PubSubSink{pub: pub, timeout: 5 * time.Second, logger: slog.With("component", "events")}
}

// Emit implements pipeline.Sink.
func (s *PubSubSink) Emit(o pipeline.Outcome) {
	persisted, ok := o.(pipeline.Persisted)
	if !ok {
		return
	}
	data, err := json.Marshal(models.ScanEvent{
		ScanID:    persisted.ScanID,
		ImageURL:  persisted.URL,
		ImageKey:  persisted.ImageKey,
		OwnerID:   persisted.OwnerID,
		Timestamp: persisted.Timestamp,
	})
	if err != nil {
		s.logger.Error("Failed to marshal scan event", "error", err, "scanId", persisted.ScanID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	attrs := map[string]string{"type": "scan.persisted", "ownerId": persisted.OwnerID}
	if err := s.pub.Publish(ctx, data, attrs); err != nil {
		s.logger.Error("Failed to publish scan event", "error", err, "scanId", persisted.ScanID)
	}
}
