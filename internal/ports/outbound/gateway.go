package outbound

import (
	"context"
	"io"

	"github.com/alchemorsel/studio/internal/domain/recipe"
)

// Gateway is the boundary to content generation. Each capability is a
// single request/response exchange; video generation is split into
// initiate, poll and fetch.
type Gateway interface {
	CreateRecipe(ctx context.Context, form recipe.FormState) (*recipe.Recipe, error)
	CreateImage(ctx context.Context, req ImageRequest) (string, error)
	InitiateVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
	FetchVideoArtifact(ctx context.Context, downloadLink string) (*Artifact, error)
	CreateSocialPost(ctx context.Context, req SocialPostRequest) (string, error)
}

// ImageRequest asks for an illustrative image of a recipe
type ImageRequest struct {
	RecipeName  string `json:"recipeName" validate:"required"`
	Description string `json:"description"`
}

// VideoRequest asks for a short video animating the recipe image. The image
// is a data URL ("data:image/jpeg;base64,...") or bare base64.
type VideoRequest struct {
	RecipeName         string `json:"recipeName" validate:"required"`
	Base64ImageDataURL string `json:"base64ImageDataUrl" validate:"required"`
}

// SocialPostRequest asks for a promotional post about a recipe
type SocialPostRequest struct {
	Recipe   recipe.Recipe   `json:"recipe"`
	Language recipe.Language `json:"language"`
}

// VideoOperation is the provider's handle on a long-running video job
type VideoOperation struct {
	Name     string                  `json:"name"`
	Done     bool                    `json:"done"`
	Response *VideoOperationResponse `json:"response,omitempty"`
	Error    *OperationError         `json:"error,omitempty"`
}

// VideoOperationResponse is present once the job is done
type VideoOperationResponse struct {
	GeneratedVideos []GeneratedVideo `json:"generatedVideos"`
}

// GeneratedVideo is one produced video
type GeneratedVideo struct {
	Video VideoFile `json:"video"`
}

// VideoFile locates a produced video
type VideoFile struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
}

// OperationError is a provider-side failure reported on a finished job
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DownloadLink returns the first generated video's URI, or "" when absent
func (op *VideoOperation) DownloadLink() string {
	if op == nil || op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return ""
	}
	return op.Response.GeneratedVideos[0].Video.URI
}

// Artifact is a streamed binary result. Size is -1 when unknown. The
// caller must close Body.
type Artifact struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// AIProvider is the raw generative model API that the gateway drives
type AIProvider interface {
	GenerateJSON(ctx context.Context, prompt TextPrompt) ([]byte, error)
	GenerateImages(ctx context.Context, prompt ImagePrompt) ([]GeneratedImage, error)
	StartVideo(ctx context.Context, prompt VideoPrompt) (*VideoOperation, error)
	GetVideoOperation(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) (*Artifact, error)
	Name() string
}

// TextPrompt requests structured JSON output constrained by Schema
type TextPrompt struct {
	System string
	User   string
	Schema map[string]interface{}
}

// ImagePrompt requests still images
type ImagePrompt struct {
	Prompt      string
	Count       int
	MIMEType    string
	AspectRatio string
}

// GeneratedImage is one produced image
type GeneratedImage struct {
	Base64   string
	MIMEType string
}

// VideoPrompt requests a video seeded with an image
type VideoPrompt struct {
	Prompt        string
	ImageBase64   string
	ImageMIMEType string
	Count         int
}
