package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// MinioStore keeps media in a MinIO bucket and hands out presigned URLs
type MinioStore struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
	maxBytes   int64
	logger     *zap.Logger
}

var _ outbound.MediaStore = (*MinioStore)(nil)

// NewMinioStore connects to the endpoint and creates the bucket if it does
// not exist yet
func NewMinioStore(ctx context.Context, cfg *config.MediaConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Bucket created", zap.String("bucket", cfg.Bucket))
	}

	logger.Info("MinIO media store initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)
	return &MinioStore{
		client:     client,
		bucket:     cfg.Bucket,
		presignTTL: cfg.PresignTTL,
		maxBytes:   cfg.MaxFileBytes,
		logger:     logger.Named("media"),
	}, nil
}

// Put uploads body. An unknown size streams a multipart upload.
func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*outbound.MediaObject, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)
	}

	info, err := s.client.PutObject(ctx, s.bucket, k, limit(body, s.maxBytes), size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", k, err)
	}

	link, err := s.client.PresignedGetObject(ctx, s.bucket, k, s.presignTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", k, err)
	}

	s.logger.Debug("Media uploaded", zap.String("key", k), zap.Int64("bytes", info.Size))
	return &outbound.MediaObject{
		Key:         k,
		URL:         link.String(),
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

// Delete removes key
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, k, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", k, err)
	}
	return nil
}
