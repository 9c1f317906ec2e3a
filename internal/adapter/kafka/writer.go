package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-forecast-service/internal/config"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// Message kinds, carried in the "kind" header.
const (
	KindHourly     = "hourly"
	KindDaily      = "daily"
	KindRainHourly = "rain_hourly"
	KindRainDaily  = "rain_daily"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes forecast runs to a Kafka topic, one message per record.
// It implements pipeline.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured forecast topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaForecastTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the writer as a publish sink.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes every record of run and writes them in a single
// WriteMessages call. Merged records are published when present; otherwise
// the rain-only records are.
func (w *Writer) Publish(ctx context.Context, run domain.ForecastRun) error {
	msgs, err := runMessages(run)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write forecast messages: %w", err)
	}
	w.logger.Debug("forecast published", "run_id", run.ID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func runMessages(run domain.ForecastRun) ([]kafkago.Message, error) {
	var msgs []kafkago.Message
	add := func(kind, key string, record any) error {
		msg, err := serializeToMessage(run, kind, key, record)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}

	if len(run.Hourly) > 0 {
		for _, h := range run.Hourly {
			if err := add(KindHourly, h.Time.String(), h); err != nil {
				return nil, err
			}
		}
	} else {
		for _, h := range run.RainHourly {
			if err := add(KindRainHourly, h.Time.String(), h); err != nil {
				return nil, err
			}
		}
	}

	if len(run.Daily) > 0 {
		for _, d := range run.Daily {
			if err := add(KindDaily, d.Date, d); err != nil {
				return nil, err
			}
		}
	} else {
		for _, d := range run.RainDaily {
			if err := add(KindRainDaily, d.Date, d); err != nil {
				return nil, err
			}
		}
	}
	return msgs, nil
}

// serializeToMessage marshals one forecast record into a Kafka message keyed
// by its time bucket so later runs for the same bucket land on the same
// partition.
func serializeToMessage(run domain.ForecastRun, kind, bucket string, record any) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", kind, err)
	}
	return kafkago.Message{
		Key:   []byte(kind + "|" + bucket),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "generated_at", Value: []byte(run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
