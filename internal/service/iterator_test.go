package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeMessages struct {
	ch        chan kafka.Message
	committed []int64
}

func newFakeMessages(values ...string) *fakeMessages {
	f := &fakeMessages{ch: make(chan kafka.Message, len(values))}
	for i, v := range values {
		f.ch <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	close(f.ch)
	return f
}

func (f *fakeMessages) Messages() <-chan kafka.Message { return f.ch }

func (f *fakeMessages) CommitOffset(_ context.Context, msg kafka.Message) error {
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func TestIterator_Run(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		handleErr  error
		wantFeeds  []string
		wantCommit []int64
	}{
		{
			name:       "shops and all",
			values:     []string{`{"feed":"shops"}`, `{}`},
			wantFeeds:  []string{FeedShops, FeedAll},
			wantCommit: []int64{0, 1},
		},
		{
			name:       "malformed and unknown feeds are skipped",
			values:     []string{`not json`, `{"feed":"beer"}`, `{"feed":"events"}`},
			wantFeeds:  []string{FeedEvents},
			wantCommit: []int64{2},
		},
		{
			name:       "failed reload is not committed",
			values:     []string{`{"feed":"shops"}`},
			handleErr:  errors.New("fetch failed"),
			wantFeeds:  []string{FeedShops},
			wantCommit: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeMessages(tt.values...)
			var feeds []string
			it := NewIterator(src, func(_ context.Context, req ReloadRequest) error {
				feeds = append(feeds, req.Feed)
				return tt.handleErr
			}, zaptest.NewLogger(t))

			require.NoError(t, it.Run(context.Background()))
			assert.Equal(t, tt.wantFeeds, feeds)
			assert.Equal(t, tt.wantCommit, src.committed)
		})
	}
}

func TestIterator_RunStopsOnCancel(t *testing.T) {
	src := &fakeMessages{ch: make(chan kafka.Message)}
	it := NewIterator(src, func(context.Context, ReloadRequest) error { return nil }, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- it.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
