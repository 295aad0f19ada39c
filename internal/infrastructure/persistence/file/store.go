// Package file provides a directory-backed key-value store. One JSON file
// per key; a lock file keeps a second process from opening the same
// directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/ports/outbound"
)

const lockName = "studio.lock"

// ErrLocked is returned when another process holds the store directory
var ErrLocked = errors.New("store directory is in use by another process")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Store implements outbound.KeyValueStore on the filesystem
type Store struct {
	dir    string
	lock   *flock.Flock
	logger *zap.Logger
}

var _ outbound.KeyValueStore = (*Store)(nil)

// Open creates dir if needed and acquires its lock
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	logger.Info("File store opened", zap.String("dir", dir))
	return &Store{dir: dir, lock: lock, logger: logger.Named("file_store")}, nil
}

// Get reads the value of key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, outbound.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the value of key atomically
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping verifies the directory is still reachable
func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// Close releases the directory lock
func (s *Store) Close() error {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("Failed to release store lock", zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, unsafeChars.ReplaceAllString(key, "_")+".json")
}
