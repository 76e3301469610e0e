package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types emitted after a successful save.
const (
	AccountCreated      = "account.created"
	AccountUpdated      = "account.updated"
	AccountDeleted      = "account.deleted"
	AssignmentPublished = "assignment.published"
	SubmissionSaved     = "submission.saved"
	SubmissionGraded    = "submission.graded"
)

// Event is one domain change.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(context.Context, string, any) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka producer settings.
type Config struct {
	Brokers []string
	Topic   string
}

// Producer publishes events as JSON messages to one Kafka topic.
type Producer struct {
	writer messageWriter
	topic  string
	log    *slog.Logger
}

// NewProducer creates an asynchronous Kafka producer. Delivery failures
// are logged by the writer's completion callback.
func NewProducer(cfg Config, log *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("no kafka topic configured")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to deliver events", "count", len(messages), "error", err)
			}
		},
	}
	return newProducer(writer, cfg.Topic, log), nil
}

func newProducer(w messageWriter, topic string, log *slog.Logger) *Producer {
	return &Producer{writer: w, topic: topic, log: log}
}

// Publish encodes the event and hands it to the writer. The event type is
// used as the message key.
func (p *Producer) Publish(ctx context.Context, eventType string, payload any) error {
	ev := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      time.Now(),
		Payload: payload,
	}
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(eventType),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	p.log.Debug("event published", "type", eventType, "id", ev.ID)
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
