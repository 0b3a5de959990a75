package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaBus publishes domain events to a Kafka topic. Events are keyed by
// aggregate ID so all events for one application land in one partition and
// stay ordered.
type KafkaBus struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// kafkaEnvelope is the JSON structure published to the topic.
type kafkaEnvelope struct {
	ID             string         `json:"id"`
	EventType      string         `json:"event_type"`
	AggregateType  string         `json:"aggregate_type"`
	AggregateID    string         `json:"aggregate_id"`
	ExternalLoanID string         `json:"external_loan_id,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	OccurredAt     string         `json:"occurred_at"`
}

// NewKafkaBus connects to the given brokers and ensures the topic exists
// before the first publish.
func NewKafkaBus(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaBus, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaBus{client: client, topic: topic, logger: logger}, nil
}

// ensureTopic creates the topic if it does not exist. Idempotent: an
// already-exists response is not an error.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

func (b *KafkaBus) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	envelope := kafkaEnvelope{
		ID:             uuid.NewString(),
		EventType:      event.EventType,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		ExternalLoanID: event.ExternalLoanID.String(),
		Payload:        event.Payload,
		OccurredAt:     event.OccurredAt.Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: b.topic,
		Key:   []byte(event.AggregateID),
		Value: value,
	}

	result := b.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		b.logger.ErrorContext(ctx, "event publish failed",
			"event_type", event.EventType,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (b *KafkaBus) Close() {
	b.client.Close()
}
