package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/pkg/config"
	"github.com/fitsnap/fitsnap/pkg/logging"
)

// presignTTL is how long an image download URL stays valid.
const presignTTL = 15 * time.Minute

// ImageStore puts photo and avatar images into an S3-compatible object
// store and hands out presigned download URLs. Only object keys are
// persisted in the database.
type ImageStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// New creates an image store and ensures its bucket exists
func New(ctx context.Context, cfg *config.StorageConfig) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	logging.GetLogger().Info("Object store connection established",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket))

	return &ImageStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logging.WithComponent("image-store"),
	}, nil
}

// Put uploads an image and returns its generated object key.
func (s *ImageStore) Put(ctx context.Context, reader io.Reader, size int64, contentType, filename string) (string, error) {
	key := uuid.NewString() + path.Ext(filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	s.logger.Debug("Uploaded image",
		zap.String("key", key),
		zap.Int64("size", size))
	return key, nil
}

// URL returns a presigned download URL for an object key. An empty key
// yields an empty URL.
func (s *ImageStore) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign image URL: %w", err)
	}
	return u.String(), nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *ImageStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
