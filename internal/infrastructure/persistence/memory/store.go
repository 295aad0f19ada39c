// Package memory provides an in-memory key-value store implementation
package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// Store implements outbound.KeyValueStore in process memory. Values are
// copied on the way in and out.
type Store struct {
	data  map[string][]byte
	mutex sync.RWMutex
}

var _ outbound.KeyValueStore = (*Store)(nil)

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get retrieves a value
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, outbound.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a value
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Keys returns the number of stored keys
func (s *Store) Keys() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
