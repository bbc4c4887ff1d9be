package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/joshmcarthur/cap-alerts/internal/config"
	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// Writer publishes display alerts to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured display-alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes every display alert and writes them in a single
// WriteMessages call. Messages are keyed by alert id so revisions of one
// chain land on the same partition. Alerts that fail to serialize are logged
// and left out.
func (w *Writer) PublishBatch(ctx context.Context, alerts []domain.DisplayAlert) error {
	msgs := w.buildMessages(alerts, domain.Now())
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d display alerts: %w", len(msgs), err)
	}
	w.logger.Debug("published display alerts", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) buildMessages(alerts []domain.DisplayAlert, processedAt time.Time) []kafkago.Message {
	msgs := make([]kafkago.Message, 0, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i], processedAt)
		if err != nil {
			w.logger.Warn("skipping display alert", "id", alerts[i].ID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DisplayAlert into a Kafka message.
func serializeToMessage(alert domain.DisplayAlert, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize display alert %s: %w", alert.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "msg_type", Value: []byte(alert.MsgType)},
			{Key: "group_size", Value: []byte(strconv.Itoa(alert.GroupSize))},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
