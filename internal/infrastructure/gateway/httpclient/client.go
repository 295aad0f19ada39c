// Package httpclient implements the generation gateway by calling a remote
// gateway over HTTP
package httpclient

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

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/infrastructure/gateway"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

const maxErrorBody = 4 << 10

// Client handles communication with a remote gateway
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ outbound.Gateway = (*Client)(nil)

// NewClient creates a new gateway client. The timeout bounds every call
// including video downloads.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("gateway_client"),
	}
}

// NewClientWithHTTP uses an existing HTTP client
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.Named("gateway_client"),
	}
}

// CreateRecipe generates a recipe for the form
func (c *Client) CreateRecipe(ctx context.Context, form recipe.FormState) (*recipe.Recipe, error) {
	var generated recipe.Recipe
	if err := c.post(ctx, gateway.PathGenerateRecipe, form, &generated); err != nil {
		return nil, err
	}
	if missing := generated.MissingFields(); len(missing) > 0 {
		return nil, apperrors.NewSchemaError("recipe is missing " + strings.Join(missing, ", ")).
			WithMetadata("missing_fields", missing)
	}
	return recipe.NewRecipe(generated), nil
}

// CreateImage generates an image data URL
func (c *Client) CreateImage(ctx context.Context, req outbound.ImageRequest) (string, error) {
	var resp gateway.ImageResponse
	if err := c.post(ctx, gateway.PathGenerateImage, req, &resp); err != nil {
		return "", err
	}
	if resp.ImageURL == "" {
		return "", apperrors.NewGatewayError("No image was generated by the API.", nil)
	}
	return resp.ImageURL, nil
}

// InitiateVideo starts a video job
func (c *Client) InitiateVideo(ctx context.Context, req outbound.VideoRequest) (*outbound.VideoOperation, error) {
	var op outbound.VideoOperation
	if err := c.post(ctx, gateway.PathGenerateVideo, req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// PollVideo refreshes a video job
func (c *Client) PollVideo(ctx context.Context, op *outbound.VideoOperation) (*outbound.VideoOperation, error) {
	var next outbound.VideoOperation
	if err := c.post(ctx, gateway.PathVideoStatus, gateway.VideoStatusRequest{Operation: op}, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// FetchVideoArtifact streams the produced video. The caller closes Body.
func (c *Client) FetchVideoArtifact(ctx context.Context, downloadLink string) (*outbound.Artifact, error) {
	resp, err := c.send(ctx, gateway.PathVideoFile, gateway.VideoFileRequest{DownloadLink: downloadLink})
	if err != nil {
		return nil, err
	}
	if resp.ContentLength == 0 {
		resp.Body.Close()
		return nil, apperrors.NewGatewayError("The gateway returned an empty video", nil)
	}
	return &outbound.Artifact{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// CreateSocialPost writes a promotional post
func (c *Client) CreateSocialPost(ctx context.Context, req outbound.SocialPostRequest) (string, error) {
	var resp gateway.SocialPostResponse
	if err := c.post(ctx, gateway.PathGenerateSocialPost, req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Post) == "" {
		return "", apperrors.NewAppError(apperrors.CodeSchema, "Received an invalid social post format from the API.", "")
	}
	return resp.Post, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.send(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewGatewayError("Received a malformed response from the gateway", err)
	}
	return nil
}

// send posts body and returns a 2xx response with its body open
func (c *Client) send(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Gateway request", zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewCancelledError("gateway request stopped").WithCause(ctxErr)
		}
		return nil, apperrors.NewGatewayError("Failed to reach the generation gateway", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// statusError converts a non-2xx response into a GatewayError carrying the
// gateway's message
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := fmt.Sprintf("gateway returned status %d", resp.StatusCode)
	var body gateway.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		message = body.Error
	}
	return apperrors.NewGatewayError(message, nil).WithMetadata("status", resp.StatusCode)
}
