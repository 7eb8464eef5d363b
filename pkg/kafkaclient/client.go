package kafkaclient

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaReader defines the interface for a Kafka message reader.
// This allows for easy mocking in unit tests. Messages are fetched without
// committing; offsets advance only through CommitMessages.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ KafkaReader = (*kafka.Reader)(nil)

// readBackoff is the pause after a failed read before trying again.
var readBackoff = time.Second

// KafkaConsumer manages the Kafka consumer and its message loop.
type KafkaConsumer struct {
	reader KafkaReader
	log    *zap.Logger
	// closed by Stop to end the loop.
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	// unbuffered hand-off to the Iterator.
	messageChan chan kafka.Message
}

// NewKafkaConsumer creates a consumer for topic in the given group. Offsets
// are committed explicitly through the Iterator.
func NewKafkaConsumer(topic, groupID, broker string, log *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
	})
	return NewKafkaConsumerWithReader(reader, log.With(zap.String("topic", topic)))
}

// NewKafkaConsumerWithReader wraps an existing reader.
func NewKafkaConsumerWithReader(reader KafkaReader, log *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:      reader,
		log:         log,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
	}
}

// StartConsuming begins the read loop in a separate goroutine. The message
// channel is closed when the loop ends.
func (kc *KafkaConsumer) StartConsuming(ctx context.Context) {
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		defer close(kc.messageChan)

		kc.log.Info("kafka consumer started")
		for {
			select {
			case <-ctx.Done():
				kc.log.Debug("context canceled, stopping consumer loop")
				return
			case <-kc.doneChan:
				kc.log.Debug("stop requested, stopping consumer loop")
				return
			default:
			}

			msg, err := kc.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				kc.log.Warn("kafka read failed", zap.Error(err))
				select {
				case <-time.After(readBackoff):
				case <-ctx.Done():
					return
				case <-kc.doneChan:
					return
				}
				continue
			}

			select {
			case kc.messageChan <- msg:
				kc.log.Debug("message received",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset))
			case <-ctx.Done():
				return
			case <-kc.doneChan:
				return
			}
		}
	}()
}

// Stop ends the read loop, waits for it and closes the reader.
func (kc *KafkaConsumer) Stop() {
	kc.stopOnce.Do(func() {
		close(kc.doneChan)
		kc.wg.Wait()
		if err := kc.reader.Close(); err != nil {
			kc.log.Warn("failed to close kafka reader", zap.Error(err))
		}
		kc.log.Info("kafka consumer stopped")
	})
}

// Iterator provides a channel-based interface to consume messages.
type Iterator struct {
	messages chan kafka.Message
	consumer *KafkaConsumer
}

// NewIterator returns a new Iterator for the consumer.
func (kc *KafkaConsumer) NewIterator() *Iterator {
	return &Iterator{
		messages: kc.messageChan,
		consumer: kc,
	}
}

// Messages returns the channel of Kafka messages.
func (it *Iterator) Messages() <-chan kafka.Message {
	return it.messages
}

// CommitOffset commits the offset of msg.
func (it *Iterator) CommitOffset(ctx context.Context, msg kafka.Message) error {
	it.consumer.log.Debug("committing offset",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset))
	return it.consumer.reader.CommitMessages(ctx, msg)
}
