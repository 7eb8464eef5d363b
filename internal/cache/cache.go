// Package cache stores session-scoped snapshots of the record lists. A Store
// is injected into each list loader; nothing else writes to it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrMiss is returned when a key holds no entry.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented key/value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// DeserializeError reports a cache entry that exists but cannot be decoded.
// Loaders treat it like a miss and fetch the feed instead.
type DeserializeError struct {
	Key string
	Err error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("cache: decode %s: %v", e.Key, e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// Load reads and decodes the snapshot stored under key.
func Load[T any](ctx context.Context, s Store, key string) ([]T, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &DeserializeError{Key: key, Err: err}
	}
	if items == nil {
		// "null" is not a snapshot.
		return nil, &DeserializeError{Key: key, Err: errors.New("empty entry")}
	}
	return items, nil
}

// Save encodes items and stores them under key.
func Save[T any](ctx context.Context, s Store, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Clear deletes every key, returning the first failure after trying all.
func Clear(ctx context.Context, s Store, keys ...string) error {
	var first error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
