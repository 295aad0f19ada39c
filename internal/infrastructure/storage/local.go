package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// LocalStore writes media below a directory and serves it from PublicPath
type LocalStore struct {
	root       string
	publicPath string
	maxBytes   int64
	logger     *zap.Logger
}

var _ outbound.MediaStore = (*LocalStore)(nil)

// NewLocalStore creates the media directory if needed
func NewLocalStore(cfg *config.MediaConfig, logger *zap.Logger) (*LocalStore, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("media.local_path is required")
	}
	if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	public := "/" + strings.Trim(cfg.PublicPath, "/")
	logger.Info("Local media store initialized",
		zap.String("path", cfg.LocalPath),
		zap.String("public_path", public),
	)
	return &LocalStore{
		root:       cfg.LocalPath,
		publicPath: public,
		maxBytes:   cfg.MaxFileBytes,
		logger:     logger.Named("media"),
	}, nil
}

// Put streams body to disk. The file only becomes visible once complete.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (*outbound.MediaObject, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	target := s.path(k)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create media file: %w", err)
	}
	defer os.Remove(tmp.Name())

	counter := limit(body, s.maxBytes)
	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: counter}); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to publish media file: %w", err)
	}

	s.logger.Debug("Media stored", zap.String("key", k), zap.Int64("bytes", counter.Count()))
	return &outbound.MediaObject{
		Key:         k,
		URL:         path.Join(s.publicPath, k),
		ContentType: contentType,
		Size:        counter.Count(),
	}, nil
}

// Delete removes key. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(k)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// Open returns the stored file of key for serving
func (s *LocalStore) Open(key string) (*os.File, fs.FileInfo, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.path(k))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apperrors.NewNotFoundError("media").WithMetadata("key", k)
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, nil, apperrors.NewNotFoundError("media").WithMetadata("key", k)
	}
	return f, info, nil
}

// PublicPath is the URL prefix media is served under
func (s *LocalStore) PublicPath() string {
	return s.publicPath
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
