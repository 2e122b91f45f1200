package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/case-intake/internal/config"
	"github.com/couchcryptid/case-intake/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Operation tells consumers whether a case event is a new case or an edit.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per saved case to the case topic.
// It implements intake.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a Kafka producer for the configured case topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaCaseTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, now: time.Now}
}

// PublishCase serializes c and writes it keyed by case id, so every
// version of a case lands on the same partition.
func (p *Publisher) PublishCase(ctx context.Context, c domain.Case, created bool) error {
	op := OperationUpdated
	if created {
		op = OperationCreated
	}
	msg, err := serializeToMessage(c, op, p.now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish case %s: %w", c.ID, err)
	}
	p.logger.Debug("case event published", "case_id", c.ID, "operation", op)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Case into a Kafka message.
func serializeToMessage(c domain.Case, op Operation, savedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize case: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(c.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "operation", Value: []byte(op)},
			{Key: "emergency_type", Value: []byte(c.EmergencyType.Type)},
			{Key: "severity", Value: []byte(c.EmergencyType.Severity)},
			{Key: "saved_at", Value: []byte(savedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
