// Package testutils provides mock implementations for testing
package testutils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/domain/shared"
	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// MockGateway provides a mock implementation of outbound.Gateway
type MockGateway struct {
	mock.Mock
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// CreateRecipe generates a recipe
func (m *MockGateway) CreateRecipe(ctx context.Context, form recipe.FormState) (*recipe.Recipe, error) {
	args := m.Called(ctx, form)
	if r, ok := args.Get(0).(*recipe.Recipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateImage generates an image data URL
func (m *MockGateway) CreateImage(ctx context.Context, req outbound.ImageRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// InitiateVideo starts a video job
func (m *MockGateway) InitiateVideo(ctx context.Context, req outbound.VideoRequest) (*outbound.VideoOperation, error) {
	args := m.Called(ctx, req)
	if op, ok := args.Get(0).(*outbound.VideoOperation); ok {
		return op, args.Error(1)
	}
	return nil, args.Error(1)
}

// PollVideo refreshes a video job
func (m *MockGateway) PollVideo(ctx context.Context, op *outbound.VideoOperation) (*outbound.VideoOperation, error) {
	args := m.Called(ctx, op)
	if next, ok := args.Get(0).(*outbound.VideoOperation); ok {
		return next, args.Error(1)
	}
	return nil, args.Error(1)
}

// FetchVideoArtifact opens a produced video
func (m *MockGateway) FetchVideoArtifact(ctx context.Context, link string) (*outbound.Artifact, error) {
	args := m.Called(ctx, link)
	if a, ok := args.Get(0).(*outbound.Artifact); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateSocialPost writes a post
func (m *MockGateway) CreateSocialPost(ctx context.Context, req outbound.SocialPostRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockProvider provides a mock implementation of outbound.AIProvider
type MockProvider struct {
	mock.Mock
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// GenerateJSON returns a structured text response
func (m *MockProvider) GenerateJSON(ctx context.Context, prompt outbound.TextPrompt) ([]byte, error) {
	args := m.Called(ctx, prompt)
	if raw, ok := args.Get(0).([]byte); ok {
		return raw, args.Error(1)
	}
	return nil, args.Error(1)
}

// GenerateImages returns generated images
func (m *MockProvider) GenerateImages(ctx context.Context, prompt outbound.ImagePrompt) ([]outbound.GeneratedImage, error) {
	args := m.Called(ctx, prompt)
	if images, ok := args.Get(0).([]outbound.GeneratedImage); ok {
		return images, args.Error(1)
	}
	return nil, args.Error(1)
}

// StartVideo starts a video operation
func (m *MockProvider) StartVideo(ctx context.Context, prompt outbound.VideoPrompt) (*outbound.VideoOperation, error) {
	args := m.Called(ctx, prompt)
	if op, ok := args.Get(0).(*outbound.VideoOperation); ok {
		return op, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetVideoOperation refreshes a video operation
func (m *MockProvider) GetVideoOperation(ctx context.Context, op *outbound.VideoOperation) (*outbound.VideoOperation, error) {
	args := m.Called(ctx, op)
	if next, ok := args.Get(0).(*outbound.VideoOperation); ok {
		return next, args.Error(1)
	}
	return nil, args.Error(1)
}

// DownloadVideo opens a video file
func (m *MockProvider) DownloadVideo(ctx context.Context, uri string) (*outbound.Artifact, error) {
	args := m.Called(ctx, uri)
	if a, ok := args.Get(0).(*outbound.Artifact); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// Name identifies the provider
func (m *MockProvider) Name() string {
	return "mock"
}

// MockKeyValueStore provides a mock implementation of outbound.KeyValueStore
type MockKeyValueStore struct {
	mock.Mock
}

// Get reads a key
func (m *MockKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if raw, ok := args.Get(0).([]byte); ok {
		return raw, args.Error(1)
	}
	return nil, args.Error(1)
}

// Set writes a key
func (m *MockKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

// Delete removes a key
func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// Ping checks the store
func (m *MockKeyValueStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Close releases the store
func (m *MockKeyValueStore) Close() error {
	return m.Called().Error(0)
}

// MemoryMediaStore keeps media objects in memory
type MemoryMediaStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	PutErr  error
}

// NewMemoryMediaStore creates an empty media store
func NewMemoryMediaStore() *MemoryMediaStore {
	return &MemoryMediaStore{objects: make(map[string][]byte)}
}

// Put stores the body under key
func (s *MemoryMediaStore) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (*outbound.MediaObject, error) {
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.objects[key] = buf.Bytes()
	s.mu.Unlock()
	return &outbound.MediaObject{
		Key:         key,
		URL:         fmt.Sprintf("/media/%s", key),
		ContentType: contentType,
		Size:        int64(buf.Len()),
	}, nil
}

// Delete removes key
func (s *MemoryMediaStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Object returns the stored bytes of key
func (s *MemoryMediaStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

// EventRecorder collects published events
type EventRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// Publish records event
func (r *EventRecorder) Publish(event shared.DomainEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Names returns the names of all recorded events in order
func (r *EventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.EventName()
	}
	return names
}

// Artifact wraps bytes as a video artifact
func Artifact(body []byte) *outbound.Artifact {
	return &outbound.Artifact{
		Body:        io.NopCloser(bytes.NewReader(body)),
		ContentType: "video/mp4",
		Size:        int64(len(body)),
	}
}
