package mock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/studio/internal/ports/outbound"
)

func TestProvider_GenerateJSON(t *testing.T) {
	p := NewProvider(0, zaptest.NewLogger(t))

	t.Run("Recipe", func(t *testing.T) {
		raw, err := p.GenerateJSON(context.Background(), outbound.TextPrompt{
			User:   `Based on the following available ingredients: "tomato, basil"`,
			Schema: map[string]interface{}{"properties": map[string]interface{}{"recipeName": nil}},
		})

		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "Simple Tomato Skillet", got["recipeName"])
		assert.Contains(t, got["description"], "tomato, basil")
		assert.Len(t, got["instructions"], 3)
	})

	t.Run("SocialPost", func(t *testing.T) {
		raw, err := p.GenerateJSON(context.Background(), outbound.TextPrompt{
			User:   `Create a post for a recipe called "Lemon Tart"`,
			Schema: map[string]interface{}{"properties": map[string]interface{}{"post": nil}},
		})

		require.NoError(t, err)
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Contains(t, got["post"], "#LemonTart")
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.GenerateJSON(ctx, outbound.TextPrompt{})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProvider_GenerateImages(t *testing.T) {
	p := NewProvider(0, zaptest.NewLogger(t))

	images, err := p.GenerateImages(context.Background(), outbound.ImagePrompt{Count: 2})

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "image/jpeg", images[0].MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(images[0].Base64)
	require.NoError(t, err)
	assert.Equal(t, imageBytes, decoded)
}

func TestProvider_VideoLifecycle(t *testing.T) {
	// Arrange
	p := NewProvider(2, zaptest.NewLogger(t))
	ctx := context.Background()

	// Act
	op, err := p.StartVideo(ctx, outbound.VideoPrompt{Prompt: "animate"})
	require.NoError(t, err)
	first, err := p.GetVideoOperation(ctx, op)
	require.NoError(t, err)
	second, err := p.GetVideoOperation(ctx, op)
	require.NoError(t, err)
	done, err := p.GetVideoOperation(ctx, op)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "operations/mock-1", op.Name)
	assert.False(t, first.Done)
	assert.False(t, second.Done)
	require.True(t, done.Done)
	assert.Equal(t, "mock://operations/mock-1.mp4", done.DownloadLink())

	artifact, err := p.DownloadVideo(ctx, done.DownloadLink())
	require.NoError(t, err)
	body, err := io.ReadAll(artifact.Body)
	require.NoError(t, err)
	assert.Equal(t, videoBytes, body)
	assert.Equal(t, int64(len(videoBytes)), artifact.Size)
}

func TestProvider_UnknownOperation(t *testing.T) {
	p := NewProvider(0, zaptest.NewLogger(t))

	op, err := p.GetVideoOperation(context.Background(), &outbound.VideoOperation{Name: "operations/other"})

	require.NoError(t, err)
	assert.True(t, op.Done)
	require.NotNil(t, op.Error)
	assert.Equal(t, 404, op.Error.Code)
}
