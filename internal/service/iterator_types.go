package service

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageIterator defines the contract for consuming messages from a Kafka topic.
// It is used by the service's Iterator to abstract away the details of the
// underlying Kafka consumer.
//
// Implementations are responsible for the lifecycle of the consumer connection.
type MessageIterator interface {
	// Messages returns a receive-only channel of Kafka messages. The channel
	// is closed by the implementation when the consumer is stopped or the
	// underlying source is exhausted.
	Messages() <-chan kafka.Message

	// CommitOffset acknowledges that a message has been successfully processed.
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// Feed names accepted in a reload request. FeedAll reloads both lists.
const (
	FeedAll    = ""
	FeedShops  = "shops"
	FeedEvents = "events"
)

// ReloadRequest is the payload of a reload trigger message.
type ReloadRequest struct {
	Feed string `json:"feed"`
}

func (r ReloadRequest) Validate() error {
	switch r.Feed {
	case FeedAll, FeedShops, FeedEvents:
		return nil
	}
	return fmt.Errorf("unknown feed %q", r.Feed)
}

// HandlerFunc performs the reload named by a request. The message offset is
// committed only when it returns nil.
type HandlerFunc func(ctx context.Context, req ReloadRequest) error
