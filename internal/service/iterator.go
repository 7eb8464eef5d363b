// Package service turns reload trigger messages from a message source (Kafka
// via pkg/kafkaclient) into explicit list reloads.
package service

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Iterator consumes messages from a MessageIterator, decodes each one as a
// ReloadRequest and passes it to a HandlerFunc.
//
// The Iterator does not manage the lifecycle of the underlying message source;
// callers start and stop their consumer outside and pass in an implementation
// of MessageIterator.
type Iterator struct {
	msgIterator MessageIterator
	handle      HandlerFunc
	log         *zap.Logger
}

func NewIterator(iterator MessageIterator, handle HandlerFunc, log *zap.Logger) *Iterator {
	return &Iterator{
		msgIterator: iterator,
		handle:      handle,
		log:         log,
	}
}

// Run processes messages until the source closes its channel or ctx is done.
// Malformed messages and failed reloads are logged and skipped without a
// commit; processing continues with the next message.
func (it *Iterator) Run(ctx context.Context) error {
	msgs := it.msgIterator.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			it.process(ctx, msg)
		}
	}
}

func (it *Iterator) process(ctx context.Context, msg kafka.Message) {
	log := it.log.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	var req ReloadRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		log.Warn("discarding malformed reload request", zap.Error(err))
		return
	}
	if err := req.Validate(); err != nil {
		log.Warn("discarding reload request", zap.Error(err))
		return
	}
	if err := it.handle(ctx, req); err != nil {
		log.Warn("reload failed", zap.String("feed", req.Feed), zap.Error(err))
		return
	}
	if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
		log.Warn("failed to commit offset", zap.Error(err))
	}
}
