package kafkaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaWriter is the subset of *kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SnapshotEvent is published whenever a cached list is replaced.
type SnapshotEvent struct {
	ID    string    `json:"id"`
	Key   string    `json:"key"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Publisher writes SnapshotEvents to a topic.
type Publisher struct {
	writer KafkaWriter
	log    *zap.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher for topic on broker.
func NewPublisher(broker, topic string, log *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, log.With(zap.String("topic", topic)))
}

func NewPublisherWithWriter(w KafkaWriter, log *zap.Logger) *Publisher {
	return &Publisher{writer: w, log: log, now: time.Now}
}

// SnapshotChanged publishes an event keyed by the cache key so that events
// for one list stay ordered within a partition.
func (p *Publisher) SnapshotChanged(ctx context.Context, key string, count int) error {
	ev := SnapshotEvent{
		ID:    uuid.NewString(),
		Key:   key,
		Count: count,
		At:    p.now().UTC(),
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode snapshot event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("publish snapshot event: %w", err)
	}
	p.log.Debug("snapshot event published", zap.String("id", ev.ID), zap.String("key", key), zap.Int("count", count))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
