// Package gateway holds the HTTP contract spoken between a studio and a
// generation gateway. Every operation is a POST with a JSON body; failures
// are non-2xx responses carrying {"error": "..."}.
package gateway

import "github.com/alchemorsel/studio/internal/ports/outbound"

// Endpoint paths
const (
	PathGenerateRecipe     = "/api/generate-recipe"
	PathGenerateImage      = "/api/generate-image"
	PathGenerateVideo      = "/api/generate-video"
	PathVideoStatus        = "/api/get-video-status"
	PathVideoFile          = "/api/get-video-file"
	PathGenerateSocialPost = "/api/generate-social-post"
)

// MsgPostOnly is returned with 405 for any other method
const MsgPostOnly = "Only POST requests are allowed"

// ErrorBody is the failure payload of every endpoint
type ErrorBody struct {
	Error string `json:"error"`
}

// ImageResponse carries a generated image data URL
type ImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// VideoStatusRequest resubmits an operation handle
type VideoStatusRequest struct {
	Operation *outbound.VideoOperation `json:"operation" validate:"required"`
}

// VideoFileRequest asks for the bytes of a produced video
type VideoFileRequest struct {
	DownloadLink string `json:"downloadLink"`
}

// SocialPostResponse carries the generated post
type SocialPostResponse struct {
	Post string `json:"post"`
}
