package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/grid-feasibility-service/internal/config"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

// Writer produces verdicts to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes the verdicts of a batch in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, evaluated []domain.EvaluatedRequest) error {
	if len(evaluated) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(evaluated))
	for i := range evaluated {
		msg, err := serializeToMessage(evaluated[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d verdicts: %w", len(msgs), err)
	}
	w.logger.Debug("verdicts published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals the verdict, keyed like the request it answers.
func serializeToMessage(er domain.EvaluatedRequest) (kafkago.Message, error) {
	data, err := json.Marshal(er.Verdict)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize verdict: %w", err)
	}
	return kafkago.Message{
		Key:   er.Key,
		Value: data,
		Headers: []kafkago.Header{
			{Key: "traffic_light", Value: []byte(er.Verdict.TrafficLight)},
			{Key: "evaluated_at", Value: []byte(er.EvaluatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
