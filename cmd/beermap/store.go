package main

import (
	"context"

	"beermap/internal/cache"
	"beermap/internal/config"
	"beermap/internal/storage"

	"go.uber.org/zap"
)

// openStore connects the configured session cache backend. The returned
// func releases it.
func openStore(ctx context.Context, c config.CacheConfig, log *zap.Logger) (cache.Store, func(), error) {
	switch c.Backend {
	case config.BackendS3:
		s, err := storage.NewS3Store(ctx, c.S3, log.Named("s3"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendPostgres:
		s, err := storage.NewPostgresStore(ctx, c.Postgres.DSN, log.Named("postgres"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return cache.NewMemory(), func() {}, nil
}
