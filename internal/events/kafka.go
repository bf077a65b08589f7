package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "payment.status_changed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes status change events to one topic, keyed by payment
// id so all events of a payment land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...), "component", "kafka")
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka")
		}),
	}

	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.StatusChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode status change event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "provider", Value: []byte(event.Provider.String())},
			{Key: "status", Value: []byte(event.Current.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write status change event to kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "status change event published",
		"topic", p.topic,
		"payment_id", event.PaymentID,
		"status", event.Current.String())

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event domain.StatusChangedEvent) error {
	return nil
}
