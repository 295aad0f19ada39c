// Package mock provides an offline AI provider with deterministic output,
// used for local development and tests.
package mock

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// Placeholder payloads. They are not valid media, only recognizable bytes.
var (
	imageBytes = []byte("mock-jpeg-image")
	videoBytes = []byte("mock-mp4-video")
)

var (
	ingredientsPattern = regexp.MustCompile(`ingredients: "([^"]+)"`)
	recipeNamePattern  = regexp.MustCompile(`recipe called "([^"]+)"`)
)

// Provider implements outbound.AIProvider without any network access
type Provider struct {
	pendingPolls int
	logger       *zap.Logger

	mu    sync.Mutex
	seq   int
	polls map[string]int
}

var _ outbound.AIProvider = (*Provider)(nil)

// NewProvider returns a provider whose video jobs report done after
// pendingPolls status checks
func NewProvider(pendingPolls int, logger *zap.Logger) *Provider {
	return &Provider{
		pendingPolls: pendingPolls,
		logger:       logger.Named("mock_ai"),
		polls:        make(map[string]int),
	}
}

// Name identifies the provider
func (p *Provider) Name() string {
	return "mock"
}

// GenerateJSON answers social post prompts with a post and every other
// prompt with a recipe
func (p *Provider) GenerateJSON(ctx context.Context, prompt outbound.TextPrompt) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hasProperty(prompt.Schema, "post") {
		name := match(recipeNamePattern, prompt.User, "this recipe")
		tag := strings.Join(strings.Fields(name), "")
		return json.Marshal(map[string]string{
			"post": fmt.Sprintf("Tonight we cook %s! 🍽️ #Recipe #Foodie #%s https://your-recipe-website.com", name, tag),
		})
	}

	ingredients := match(ingredientsPattern, prompt.User, "pantry staples")
	title := "Simple " + cases.Title(language.English).String(firstWord(ingredients)) + " Skillet"
	return json.Marshal(map[string]interface{}{
		"recipeName":  title,
		"description": fmt.Sprintf("A friendly weeknight dish built around %s.", ingredients),
		"prepTime":    "10 minutes",
		"cookTime":    "20 minutes",
		"servings":    "2 servings",
		"ingredients": []string{ingredients, "1 tbsp olive oil", "Salt and pepper"},
		"instructions": []string{
			"Preheat a skillet over medium heat.",
			"Add the oil and the ingredients, then cook until tender.",
			"Season to taste and serve warm.",
		},
		"nutrition": map[string]string{
			"calories":      "420 kcal",
			"protein":       "18g",
			"carbs":         "35g",
			"fat":           "16g",
			"glycemicIndex": "Medium",
		},
	})
}

// GenerateImages returns Count placeholder images
func (p *Provider) GenerateImages(ctx context.Context, prompt outbound.ImagePrompt) ([]outbound.GeneratedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := prompt.Count
	if count <= 0 {
		count = 1
	}
	mime := prompt.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	images := make([]outbound.GeneratedImage, count)
	for i := range images {
		images[i] = outbound.GeneratedImage{Base64: base64.StdEncoding.EncodeToString(imageBytes), MIMEType: mime}
	}
	return images, nil
}

// StartVideo opens a new fake operation
func (p *Provider) StartVideo(ctx context.Context, _ outbound.VideoPrompt) (*outbound.VideoOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.seq++
	name := fmt.Sprintf("operations/mock-%d", p.seq)
	p.polls[name] = 0
	p.mu.Unlock()

	p.logger.Debug("Mock video operation started", zap.String("operation", name))
	return &outbound.VideoOperation{Name: name}, nil
}

// GetVideoOperation reports done once the operation was polled enough
func (p *Provider) GetVideoOperation(ctx context.Context, op *outbound.VideoOperation) (*outbound.VideoOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	polls, ok := p.polls[op.Name]
	if !ok {
		return &outbound.VideoOperation{
			Name:  op.Name,
			Done:  true,
			Error: &outbound.OperationError{Code: 404, Message: "operation not found"},
		}, nil
	}
	polls++
	p.polls[op.Name] = polls
	if polls <= p.pendingPolls {
		return &outbound.VideoOperation{Name: op.Name}, nil
	}
	return &outbound.VideoOperation{
		Name: op.Name,
		Done: true,
		Response: &outbound.VideoOperationResponse{
			GeneratedVideos: []outbound.GeneratedVideo{{
				Video: outbound.VideoFile{URI: "mock://" + op.Name + ".mp4", MIMEType: "video/mp4"},
			}},
		},
	}, nil
}

// DownloadVideo returns placeholder video bytes
func (p *Provider) DownloadVideo(ctx context.Context, _ string) (*outbound.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &outbound.Artifact{
		Body:        io.NopCloser(bytes.NewReader(videoBytes)),
		ContentType: "video/mp4",
		Size:        int64(len(videoBytes)),
	}, nil
}

func hasProperty(schema map[string]interface{}, name string) bool {
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = props[name]
	return ok
}

func match(pattern *regexp.Regexp, s, fallback string) string {
	if m := pattern.FindStringSubmatch(s); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return fallback
}

func firstWord(s string) string {
	s = strings.TrimLeft(s, " ,")
	if i := strings.IndexAny(s, " ,"); i > 0 {
		return s[:i]
	}
	return s
}
