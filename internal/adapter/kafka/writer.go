// Package kafka publishes derived views to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per derived-view row, keyed by business id.
type Publisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured view topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// PublishView serializes and publishes every row of a view in a single
// WriteMessages call.
func (p *Publisher) PublishView(ctx context.Context, view, runID string, rows []domain.Restaurant) error {
	if len(rows) == 0 {
		p.logger.Info("view empty, nothing to publish", "view", view)
		return nil
	}

	records := domain.NewViewRecords(view, runID, rows)
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish view %s: %w", view, err)
	}

	p.metrics.ViewsPublished.WithLabelValues(view).Add(float64(len(msgs)))
	p.logger.Info("view published", "view", view, "rows", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ViewRecord into a Kafka message.
func serializeToMessage(rec domain.ViewRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize view record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SourceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "view", Value: []byte(rec.View)},
			{Key: "run_id", Value: []byte(rec.RunID)},
			{Key: "published_at", Value: []byte(rec.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
