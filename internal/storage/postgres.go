package storage

import (
	"context"
	"errors"
	"fmt"

	"beermap/internal/cache"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS session_cache (
	key        text PRIMARY KEY,
	value      jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
	selectSQL = `SELECT value FROM session_cache WHERE key = $1`
	upsertSQL = `INSERT INTO session_cache (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteSQL = `DELETE FROM session_cache WHERE key = $1`
)

// Querier is satisfied by *pgxpool.Pool and pgx.Conn.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps session cache entries in the session_cache table.
type PostgresStore struct {
	db   Querier
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ cache.Store = (*PostgresStore)(nil)

// NewPostgresStore opens a pool for dsn and creates the cache table.
func NewPostgresStore(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	s := &PostgresStore{db: pool, pool: pool, log: log}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Connected to postgres cache")
	return s, nil
}

// NewPostgresStoreWithQuerier builds a store on an existing connection.
func NewPostgresStoreWithQuerier(db Querier, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// Migrate creates the cache table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create session_cache table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, selectSQL, key).Scan(&value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, cache.ErrMiss
	case err != nil:
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, deleteSQL, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	s.log.Debug("Deleted cache entry", zap.String("key", key), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// Close releases the pool when the store owns one.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
