// Package gemini talks to the Google Generative Language REST API for
// structured text, Imagen stills and Veo videos.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultVideoModel = "veo-2.0-generate-001"

	defaultTimeout = 2 * time.Minute
	apiKeyHeader   = "x-goog-api-key"
	maxErrorBody   = 4 << 10
)

// missingKeyMessage is reported by every call when no key is configured
const missingKeyMessage = "API_KEY environment variable not set."

// Config holds the connection settings
type Config struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	VideoModel  string
	Temperature float64
	Timeout     time.Duration
}

// Client implements outbound.AIProvider over REST
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes the client
type Option func(*Client)

// WithHTTPClient overrides the default traced HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.cfg.BaseURL = baseURL
		}
	}
}

var _ outbound.AIProvider = (*Client)(nil)

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = DefaultVideoModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	return c
}

// Name identifies the provider
func (c *Client) Name() string {
	return "gemini"
}

// GenerateJSON asks the text model for a JSON document matching the schema
func (c *Client) GenerateJSON(ctx context.Context, prompt outbound.TextPrompt) ([]byte, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt.User}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   prompt.Schema,
		},
	}
	if prompt.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: prompt.System}}}
	}
	if c.cfg.Temperature > 0 {
		t := c.cfg.Temperature
		req.GenerationConfig.Temperature = &t
	}

	var resp generateContentResponse
	if err := c.post(ctx, c.modelURL(c.cfg.TextModel, "generateContent"), req, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("Text generation finished",
		zap.String("model", c.cfg.TextModel),
		zap.Int("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
		zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount),
	)

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, apperrors.NewGatewayError("The request was blocked by the model", nil).
				WithMetadata("block_reason", resp.PromptFeedback.BlockReason)
		}
		return nil, apperrors.NewGatewayError("The model returned no candidates", nil)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return nil, apperrors.NewGatewayError("The model returned an empty response", nil).
			WithMetadata("finish_reason", resp.Candidates[0].FinishReason)
	}
	return []byte(out), nil
}

// GenerateImages calls the Imagen predict endpoint
func (c *Client) GenerateImages(ctx context.Context, prompt outbound.ImagePrompt) ([]outbound.GeneratedImage, error) {
	count := prompt.Count
	if count <= 0 {
		count = 1
	}
	req := predictRequest{
		Instances: []imageInstance{{Prompt: prompt.Prompt}},
		Parameters: imageParameters{
			SampleCount: count,
			AspectRatio: prompt.AspectRatio,
		},
	}
	if prompt.MIMEType != "" {
		req.Parameters.OutputOptions = &outputOptions{MIMEType: prompt.MIMEType}
	}

	var resp predictResponse
	if err := c.post(ctx, c.modelURL(c.cfg.ImageModel, "predict"), req, &resp); err != nil {
		return nil, err
	}

	images := make([]outbound.GeneratedImage, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		mime := p.MIMEType
		if mime == "" {
			mime = prompt.MIMEType
		}
		images = append(images, outbound.GeneratedImage{Base64: p.BytesBase64Encoded, MIMEType: mime})
	}
	return images, nil
}

// StartVideo submits a Veo long-running job seeded with an image
func (c *Client) StartVideo(ctx context.Context, prompt outbound.VideoPrompt) (*outbound.VideoOperation, error) {
	count := prompt.Count
	if count <= 0 {
		count = 1
	}
	instance := videoInstance{Prompt: prompt.Prompt}
	if prompt.ImageBase64 != "" {
		instance.Image = &inlineImage{BytesBase64Encoded: prompt.ImageBase64, MIMEType: prompt.ImageMIMEType}
	}
	req := videoRequest{
		Instances:  []videoInstance{instance},
		Parameters: videoParameters{SampleCount: count},
	}

	var op operation
	if err := c.post(ctx, c.modelURL(c.cfg.VideoModel, "predictLongRunning"), req, &op); err != nil {
		return nil, err
	}
	c.logger.Info("Video operation started", zap.String("operation", op.Name))
	return toVideoOperation(op), nil
}

// GetVideoOperation refreshes an operation by name
func (c *Client) GetVideoOperation(ctx context.Context, current *outbound.VideoOperation) (*outbound.VideoOperation, error) {
	if current == nil || current.Name == "" {
		return nil, apperrors.NewBadRequestError("operation name is required")
	}
	if err := c.requireKey(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+strings.TrimLeft(current.Name, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var op operation
	if err := c.do(httpReq, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		op.Name = current.Name
	}
	return toVideoOperation(op), nil
}

// DownloadVideo streams the video file behind uri. The caller closes the body.
func (c *Client) DownloadVideo(ctx context.Context, uri string) (*outbound.Artifact, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewGatewayError("Failed to download the video", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return &outbound.Artifact{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.cfg.BaseURL, model, method)
}

func (c *Client) requireKey() error {
	if c.cfg.APIKey == "" {
		return apperrors.NewGatewayError(missingKeyMessage, nil)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	if err := c.requireKey(); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(httpReq *http.Request, out interface{}) error {
	httpReq.Header.Set(apiKeyHeader, c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := httpReq.Context().Err(); ctxErr != nil {
			return apperrors.NewCancelledError("provider request stopped").WithCause(ctxErr)
		}
		return apperrors.NewGatewayError("Failed to reach the generation service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewSchemaError(fmt.Sprintf("failed to decode response: %v", err)).WithCause(err)
	}

	c.logger.Debug("Provider call finished",
		zap.String("method", httpReq.Method),
		zap.String("path", httpReq.URL.Path),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// statusError reads a bounded error body and reports the provider's message
func statusError(resp *http.Response) *apperrors.AppError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(raw))
	var body apiErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		message = body.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return apperrors.NewGatewayError(message, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))).
		WithMetadata("status", resp.StatusCode)
}

// toVideoOperation maps the REST operation onto the canonical video handle
func toVideoOperation(op operation) *outbound.VideoOperation {
	out := &outbound.VideoOperation{Name: op.Name, Done: op.Done}
	if op.Error != nil {
		out.Error = &outbound.OperationError{Code: op.Error.Code, Message: op.Error.Message}
	}
	if op.Response != nil && op.Response.GenerateVideoResponse != nil {
		resp := &outbound.VideoOperationResponse{}
		for _, sample := range op.Response.GenerateVideoResponse.GeneratedSamples {
			resp.GeneratedVideos = append(resp.GeneratedVideos, outbound.GeneratedVideo{
				Video: outbound.VideoFile{URI: sample.Video.URI, MIMEType: sample.Video.MIMEType},
			})
		}
		out.Response = resp
	}
	return out
}
