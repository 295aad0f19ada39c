// Package redis provides a Redis-backed key-value store
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// Store implements outbound.KeyValueStore on Redis strings. Keys never expire.
type Store struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ outbound.KeyValueStore = (*Store)(nil)

// NewStore connects to Redis and verifies the connection
func NewStore(cfg *config.RedisConfig, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr()},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	store := NewStoreWithClient(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis store initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
	)
	return store, nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client redis.UniversalClient, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger.Named("redis_store")}
}

// Get retrieves a value
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, outbound.ErrKeyNotFound
	}
	if err != nil {
		s.logger.Debug("Redis get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Set stores a value without expiry
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		s.logger.Error("Redis set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Redis delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}
