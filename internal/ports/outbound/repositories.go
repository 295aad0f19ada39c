// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"io"

	"github.com/alchemorsel/studio/internal/domain/shared"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for absent keys
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore persists opaque values under string keys. It backs the
// form state, the active recipe and the saved collection.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// MediaObject describes a stored media file
type MediaObject struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// MediaStore keeps fetched video artifacts and hands out URLs the
// presentation layer can play. A size of -1 means unknown.
type MediaStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*MediaObject, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher receives state change notifications. Implementations must
// not block the caller.
type EventPublisher interface {
	Publish(event shared.DomainEvent)
}

// EventPublisherFunc adapts a function to EventPublisher
type EventPublisherFunc func(event shared.DomainEvent)

// Publish calls f(event)
func (f EventPublisherFunc) Publish(event shared.DomainEvent) {
	f(event)
}
