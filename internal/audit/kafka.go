package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"drivepass/internal/domain"
)

// Sink receives mirrored audit entries. Satisfied by KafkaSink in production
// and by in-memory fakes in tests.
type Sink interface {
	Publish(ctx context.Context, entry domain.AuditEntry) error
}

// kafkaPayload is the JSON structure produced to the audit topic. Field names
// are stable for downstream consumers.
type kafkaPayload struct {
	CaseID    string `json:"case_id"`
	ActorRef  string `json:"actor_ref"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// KafkaSink mirrors audit entries to a Kafka topic. The durable store remains
// the source of truth; this stream feeds compliance and ops consumers.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, entry domain.AuditEntry) error {
	payload, err := json.Marshal(kafkaPayload{
		CaseID:    entry.CaseID.String(),
		ActorRef:  entry.ActorRef.String(),
		Action:    entry.Action,
		Detail:    entry.DetailText,
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(entry.CaseID.String()),
		Value: payload,
		Topic: s.topic,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (s *KafkaSink) Close() {
	s.client.Close()
}
