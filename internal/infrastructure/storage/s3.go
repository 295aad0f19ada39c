package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// S3Store keeps media in an S3 bucket and hands out presigned URLs
type S3Store struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucket     string
	presignTTL time.Duration
	maxBytes   int64
	logger     *zap.Logger
}

var _ outbound.MediaStore = (*S3Store)(nil)

// NewS3Store creates an AWS session. Static credentials are used when set,
// otherwise the default credential chain applies. A custom endpoint
// switches to path-style addressing.
func NewS3Store(cfg *config.MediaConfig, logger *zap.Logger) (*S3Store, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
		awsCfg.DisableSSL = aws.Bool(!cfg.UseSSL)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	logger.Info("S3 media store initialized",
		zap.String("region", cfg.Region),
		zap.String("bucket", cfg.Bucket),
	)
	return &S3Store{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     cfg.Bucket,
		presignTTL: cfg.PresignTTL,
		maxBytes:   cfg.MaxFileBytes,
		logger:     logger.Named("media"),
	}, nil
}

// Put uploads body with the multipart uploader
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*outbound.MediaObject, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)
	}

	counter := limit(body, s.maxBytes)
	if _, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        counter,
		ContentType: aws.String(contentType),
	}); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", k, err)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	link, err := req.Presign(s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", k, err)
	}

	s.logger.Debug("Media uploaded", zap.String("key", k), zap.Int64("bytes", counter.Count()))
	return &outbound.MediaObject{
		Key:         k,
		URL:         link,
		ContentType: contentType,
		Size:        counter.Count(),
	}, nil
}

// Delete removes key
func (s *S3Store) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", k, err)
	}
	return nil
}
