package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "kycgate/pkg/domain-errors"
)

// KafkaStore publishes audit events to a Kafka topic, keyed by subject so
// per-application ordering is preserved. Queries are served elsewhere; this
// sink is write-only.
type KafkaStore struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaStore(brokers []string, topic string, logger *slog.Logger) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connect to kafka")
	}
	return &KafkaStore{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode audit event")
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.ErrorContext(ctx, "audit event publish failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	})
	return nil
}

// ListBySubject is not served by the broker. Audit queries read from a
// durable store downstream of the topic.
func (s *KafkaStore) ListBySubject(context.Context, string) ([]Event, error) {
	return nil, dErrors.New(dErrors.CodeUnavailable, "audit queries are not served from the broker")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
