// Package storage provides the durable cache.Store backends: S3-compatible
// object storage and Postgres.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"beermap/internal/cache"
	"beermap/internal/config"
	"beermap/internal/keys"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectAPI is the subset of the object-store client the S3 store needs.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, data []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Remove(ctx context.Context, bucket, key string) error
}

// S3Store keeps session cache entries as JSON objects in one bucket.
type S3Store struct {
	api    ObjectAPI
	bucket string
	log    *zap.Logger
}

var _ cache.Store = (*S3Store)(nil)

// NewS3Store connects to the MinIO endpoint described by cfg and makes sure
// the cache bucket exists.
func NewS3Store(ctx context.Context, cfg config.S3Config, log *zap.Logger) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	log.Info("Connected to MinIO endpoint", zap.String("endpoint", cfg.Endpoint))

	s := NewS3StoreWithAPI(minioAPI{client: client}, cfg.Bucket, log)
	if err := s.CreateBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewS3StoreWithAPI builds a store on an existing ObjectAPI.
func NewS3StoreWithAPI(api ObjectAPI, bucket string, log *zap.Logger) *S3Store {
	return &S3Store{api: api, bucket: bucket, log: log}
}

// CreateBucket creates the cache bucket unless it already exists.
func (s *S3Store) CreateBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", s.bucket, err)
	}
	s.log.Info("Created cache bucket", zap.String("bucket", s.bucket))
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.api.Get(ctx, s.bucket, keys.Object(key))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	objectKey := keys.Object(key)
	if err := s.api.Put(ctx, s.bucket, objectKey, value); err != nil {
		return fmt.Errorf("failed to store object in S3: %w", err)
	}
	s.log.Debug("Stored cache entry",
		zap.String("bucket", s.bucket),
		zap.String("key", objectKey),
		zap.Int("bytes", len(value)))
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.api.Remove(ctx, s.bucket, keys.Object(key)); err != nil {
		return fmt.Errorf("failed to remove object from S3: %w", err)
	}
	return nil
}

// minioAPI adapts *minio.Client to ObjectAPI.
type minioAPI struct {
	client *minio.Client
}

func (m minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m minioAPI) MakeBucket(ctx context.Context, bucket string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

func (m minioAPI) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := m.client.PutObject(
		ctx,
		bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

// Get maps a missing object to cache.ErrMiss.
func (m minioAPI) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("failed to read object from S3: %w", err)
	}
	return data, nil
}

func (m minioAPI) Remove(ctx context.Context, bucket, key string) error {
	return m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}
