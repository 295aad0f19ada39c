// Package generation implements the generation gateway on top of a raw AI
// provider: it builds prompts, enforces response schemas and normalizes
// media payloads.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

const (
	imageMIMEType    = "image/jpeg"
	imageAspectRatio = "1:1"

	msgNoImage           = "No image was generated by the API."
	msgInvalidSocialPost = "Received an invalid social post format from the API."
	msgInvalidDataURL    = "Invalid data URL format"
	msgDownloadLink      = "downloadLink is required."
)

// Recorder receives per request measurements
type Recorder interface {
	GenerationRequest(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) GenerationRequest(string, string, time.Duration) {}

// Service implements outbound.Gateway in process
type Service struct {
	provider outbound.AIProvider
	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

var _ outbound.Gateway = (*Service)(nil)

// NewService creates the in-process gateway. A nil recorder disables metrics.
func NewService(provider outbound.AIProvider, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		provider: provider,
		recorder: recorder,
		tracer:   otel.Tracer("github.com/alchemorsel/studio/generation"),
		logger:   logger.Named("generation"),
	}
}

// CreateRecipe generates one recipe for the form
func (s *Service) CreateRecipe(ctx context.Context, form recipe.FormState) (result *recipe.Recipe, err error) {
	ctx, done := s.begin(ctx, "recipe", attribute.String("recipe.language", string(form.Language)))
	defer func() { done(err) }()

	raw, err := s.provider.GenerateJSON(ctx, outbound.TextPrompt{
		System: recipeSystemInstruction,
		User:   buildRecipePrompt(form),
		Schema: recipeSchema(),
	})
	if err != nil {
		return nil, err
	}

	var generated recipe.Recipe
	if err := json.Unmarshal(raw, &generated); err != nil {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("recipe is not valid JSON: %v", err)).WithCause(err)
	}
	if missing := generated.MissingFields(); len(missing) > 0 {
		return nil, apperrors.NewSchemaError("recipe is missing " + strings.Join(missing, ", ")).
			WithMetadata("missing_fields", missing)
	}
	return recipe.NewRecipe(generated), nil
}

// CreateImage renders a photo of the recipe and returns it as a data URL
func (s *Service) CreateImage(ctx context.Context, req outbound.ImageRequest) (url string, err error) {
	ctx, done := s.begin(ctx, "image")
	defer func() { done(err) }()

	if strings.TrimSpace(req.RecipeName) == "" {
		return "", apperrors.NewValidationError("recipeName is required")
	}

	images, err := s.provider.GenerateImages(ctx, outbound.ImagePrompt{
		Prompt:      buildImagePrompt(req.RecipeName),
		Count:       1,
		MIMEType:    imageMIMEType,
		AspectRatio: imageAspectRatio,
	})
	if err != nil {
		return "", err
	}
	if len(images) == 0 || images[0].Base64 == "" {
		return "", apperrors.NewGatewayError(msgNoImage, nil)
	}

	mime := images[0].MIMEType
	if mime == "" {
		mime = imageMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, images[0].Base64), nil
}

// InitiateVideo submits a video job seeded with the recipe image
func (s *Service) InitiateVideo(ctx context.Context, req outbound.VideoRequest) (op *outbound.VideoOperation, err error) {
	ctx, done := s.begin(ctx, "video_initiate")
	defer func() { done(err) }()

	if strings.TrimSpace(req.RecipeName) == "" {
		return nil, apperrors.NewValidationError("recipeName is required")
	}
	data, mime, err := ParseDataURL(req.Base64ImageDataURL)
	if err != nil {
		return nil, err
	}

	op, err = s.provider.StartVideo(ctx, outbound.VideoPrompt{
		Prompt:        buildVideoPrompt(req.RecipeName),
		ImageBase64:   data,
		ImageMIMEType: mime,
		Count:         1,
	})
	if err != nil {
		return nil, err
	}
	if op == nil || op.Name == "" {
		return nil, apperrors.NewGatewayError("The video service returned no operation", nil)
	}
	return op, nil
}

// PollVideo refreshes the status of a video job
func (s *Service) PollVideo(ctx context.Context, op *outbound.VideoOperation) (next *outbound.VideoOperation, err error) {
	ctx, done := s.begin(ctx, "video_poll")
	defer func() { done(err) }()

	if op == nil || strings.TrimSpace(op.Name) == "" {
		return nil, apperrors.NewValidationError("operation is required")
	}
	return s.provider.GetVideoOperation(ctx, op)
}

// FetchVideoArtifact opens the produced video for streaming
func (s *Service) FetchVideoArtifact(ctx context.Context, downloadLink string) (artifact *outbound.Artifact, err error) {
	ctx, done := s.begin(ctx, "video_fetch")
	defer func() { done(err) }()

	if strings.TrimSpace(downloadLink) == "" {
		return nil, apperrors.NewValidationError(msgDownloadLink)
	}
	return s.provider.DownloadVideo(ctx, downloadLink)
}

// CreateSocialPost writes a promotional post in the requested language
func (s *Service) CreateSocialPost(ctx context.Context, req outbound.SocialPostRequest) (post string, err error) {
	ctx, done := s.begin(ctx, "social_post", attribute.String("recipe.language", string(req.Language)))
	defer func() { done(err) }()

	if strings.TrimSpace(req.Recipe.Name) == "" {
		return "", apperrors.NewValidationError("recipe is required")
	}

	raw, err := s.provider.GenerateJSON(ctx, outbound.TextPrompt{
		System: socialSystemInstruction(req.Language),
		User:   buildSocialPrompt(req.Recipe, req.Language),
		Schema: socialPostSchema(),
	})
	if err != nil {
		return "", err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", apperrors.NewAppError(apperrors.CodeSchema, msgInvalidSocialPost, err.Error()).WithCause(err)
	}
	text, ok := payload["post"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", apperrors.NewAppError(apperrors.CodeSchema, msgInvalidSocialPost, "")
	}
	return text, nil
}

// begin opens a span and returns the function that closes it with the
// outcome of the call
func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	provider := s.provider.Name()
	attrs = append(attrs, attribute.String("ai.provider", provider), attribute.String("ai.operation", operation))
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("ai.%s.%s", provider, operation), trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := "success"
		if err != nil {
			outcome = "failure"
			if apperrors.Is(err, apperrors.CodeCancelled) || ctx.Err() != nil {
				outcome = "cancelled"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, apperrors.MessageOf(err))
			s.logger.Warn("Generation request failed",
				zap.String("operation", operation),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
		} else {
			s.logger.Debug("Generation request finished",
				zap.String("operation", operation),
				zap.Duration("duration", elapsed),
			)
		}
		s.recorder.GenerationRequest(operation, outcome, elapsed)
		span.End()
	}
}

// ParseDataURL extracts the base64 payload and MIME type of a data URL.
// Input without a comma is taken as bare base64 JPEG data.
func ParseDataURL(dataURL string) (string, string, error) {
	parts := strings.Split(dataURL, ",")
	switch len(parts) {
	case 1:
		if strings.TrimSpace(parts[0]) == "" {
			return "", "", apperrors.NewValidationError(msgInvalidDataURL)
		}
		return parts[0], imageMIMEType, nil
	case 2:
		mime := imageMIMEType
		header := strings.TrimPrefix(parts[0], "data:")
		if i := strings.Index(header, ";"); i >= 0 {
			header = header[:i]
		}
		if header != "" && strings.HasPrefix(parts[0], "data:") {
			mime = header
		}
		if parts[1] == "" {
			return "", "", apperrors.NewValidationError(msgInvalidDataURL)
		}
		return parts[1], mime, nil
	default:
		return "", "", apperrors.NewValidationError(msgInvalidDataURL)
	}
}
