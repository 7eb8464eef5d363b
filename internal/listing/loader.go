// Package listing drives a record list through its mount lifecycle: serve
// from the session cache when possible, otherwise fetch, and refresh the
// cached copy in the background.
package listing

import (
	"context"
	"errors"
	"sync"

	"beermap/internal/cache"
	"beermap/internal/snapshot"

	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Fetcher loads a validated record list. *feed.Source satisfies it.
type Fetcher[T any] interface {
	Load(ctx context.Context) ([]T, error)
}

// Notifier is told when a refresh replaced the snapshot under key.
type Notifier interface {
	SnapshotChanged(ctx context.Context, key string, count int) error
}

// Snapshot is a point-in-time view of a Loader.
type Snapshot[T any] struct {
	State   State
	Items   []T
	Message string
}

// Loader owns one record list and its cache entry. Lists handed out by the
// loader are shared and must not be modified.
type Loader[T any] struct {
	key      string
	store    cache.Store
	source   Fetcher[T]
	order    func([]T) []T
	notifier Notifier
	onChange func([]T)
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	items    []T
	message  string
	epoch    uint64
	failures int

	// writeMu orders cache writes and notifications against Teardown.
	writeMu sync.Mutex
	wg      sync.WaitGroup
}

type Option[T any] func(*Loader[T])

// WithOrder sorts every fetched list before it is committed.
func WithOrder[T any](order func([]T) []T) Option[T] {
	return func(l *Loader[T]) { l.order = order }
}

func WithNotifier[T any](n Notifier) Option[T] {
	return func(l *Loader[T]) { l.notifier = n }
}

// WithOnChange registers fn to run whenever the committed list is replaced.
func WithOnChange[T any](fn func([]T)) Option[T] {
	return func(l *Loader[T]) { l.onChange = fn }
}

func New[T any](key string, store cache.Store, source Fetcher[T], log *zap.Logger, opts ...Option[T]) *Loader[T] {
	l := &Loader[T]{
		key:      key,
		store:    store,
		source:   source,
		onChange: func([]T) {},
		log:      log.With(zap.String("list", key)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mount starts a load cycle. With a readable cache entry the loader becomes
// Ready at once and refreshes in the background; refresh failures are only
// counted and logged. Without one the feed is fetched before Mount returns
// and a failure leaves the loader Failed with the error returned.
func (l *Loader[T]) Mount(ctx context.Context) error {
	l.mu.Lock()
	epoch := l.epoch
	l.state = Loading
	l.message = ""
	l.mu.Unlock()

	cached, err := cache.Load[T](ctx, l.store, l.key)
	if err == nil {
		if !l.commit(epoch, cached) {
			return nil
		}
		l.wg.Add(1)
		go l.refresh(context.WithoutCancel(ctx), epoch)
		return nil
	}

	var de *cache.DeserializeError
	switch {
	case errors.Is(err, cache.ErrMiss):
	case errors.As(err, &de):
		l.log.Info("discarding unreadable cache entry", zap.Error(err))
	default:
		l.log.Warn("cache read failed, fetching feed", zap.Error(err))
	}

	items, err := l.fetch(ctx)
	if err != nil {
		l.fail(epoch, err)
		return err
	}
	if l.commit(epoch, items) {
		l.persist(ctx, epoch, items, false)
	}
	return nil
}

func (l *Loader[T]) refresh(ctx context.Context, epoch uint64) {
	defer l.wg.Done()

	items, err := l.fetch(ctx)
	if err != nil {
		l.mu.Lock()
		l.failures++
		l.mu.Unlock()
		l.log.Warn("background refresh failed, serving cached list", zap.Error(err))
		return
	}

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return
	}
	next, changed := snapshot.Merge(l.items, items)
	if !changed {
		l.mu.Unlock()
		l.log.Debug("feed unchanged")
		return
	}
	l.items = next
	l.mu.Unlock()

	l.onChange(next)
	if l.persist(ctx, epoch, next, true) {
		l.log.Info("list refreshed", zap.Int("count", len(next)))
	}
}

// persist writes items to the cache, and optionally notifies, unless the
// loader was torn down since the cycle began.
func (l *Loader[T]) persist(ctx context.Context, epoch uint64, items []T, notify bool) bool {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if !l.current(epoch) {
		return false
	}
	l.save(ctx, items)
	if notify && l.notifier != nil {
		if err := l.notifier.SnapshotChanged(ctx, l.key, len(items)); err != nil {
			l.log.Warn("snapshot notification failed", zap.Error(err))
		}
	}
	return true
}

func (l *Loader[T]) current(epoch uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch == epoch
}

func (l *Loader[T]) fetch(ctx context.Context) ([]T, error) {
	items, err := l.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if l.order != nil {
		items = l.order(items)
	}
	return items, nil
}

// commit makes items the Ready list unless the loader was torn down since
// the cycle began.
func (l *Loader[T]) commit(epoch uint64, items []T) bool {
	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return false
	}
	l.state = Ready
	l.items = items
	l.mu.Unlock()
	l.onChange(items)
	return true
}

func (l *Loader[T]) fail(epoch uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epoch != epoch {
		return
	}
	l.state = Failed
	l.message = userMessage(err)
	l.log.Warn("list load failed", zap.Error(err))
}

func (l *Loader[T]) save(ctx context.Context, items []T) {
	if err := cache.Save(ctx, l.store, l.key, items); err != nil {
		l.log.Warn("cache write failed", zap.Error(err))
	}
}

func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return err.Error()
}

// Teardown ends the current mount: in-flight results are discarded and the
// cache entry is removed.
func (l *Loader[T]) Teardown(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.mu.Lock()
	l.epoch++
	l.state = Idle
	l.items = nil
	l.message = ""
	l.mu.Unlock()
	return l.store.Delete(ctx, l.key)
}

// Wait blocks until background refreshes started so far have finished.
func (l *Loader[T]) Wait() {
	l.wg.Wait()
}

func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[T]{State: l.state, Items: l.items, Message: l.message}
}

func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}

// RefreshFailures counts background refreshes that failed silently.
func (l *Loader[T]) RefreshFailures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

func (l *Loader[T]) Key() string { return l.key }
