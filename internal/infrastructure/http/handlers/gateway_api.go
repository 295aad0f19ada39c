package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/infrastructure/gateway"
	"github.com/alchemorsel/studio/internal/infrastructure/security"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

const msgDownloadLinkRequired = "downloadLink is required."

// GatewayHandlers exposes a Gateway on the POST-only gateway contract.
// Every failure is answered with {"error": message}.
type GatewayHandlers struct {
	gateway   outbound.Gateway
	validator *security.ValidationService
	logger    *zap.Logger
}

// NewGatewayHandlers creates a new gateway handlers instance
func NewGatewayHandlers(gw outbound.Gateway, validator *security.ValidationService, logger *zap.Logger) *GatewayHandlers {
	return &GatewayHandlers{
		gateway:   gw,
		validator: validator,
		logger:    logger.Named("gateway_api"),
	}
}

// Routes mounts every endpoint. Methods are checked by the handlers so
// that non-POST requests get the contract's 405 body.
func (h *GatewayHandlers) Routes(mount func(pattern string, handler http.HandlerFunc)) {
	mount(gateway.PathGenerateRecipe, h.postOnly(h.GenerateRecipe))
	mount(gateway.PathGenerateImage, h.postOnly(h.GenerateImage))
	mount(gateway.PathGenerateVideo, h.postOnly(h.GenerateVideo))
	mount(gateway.PathVideoStatus, h.postOnly(h.VideoStatus))
	mount(gateway.PathVideoFile, h.postOnly(h.VideoFile))
	mount(gateway.PathGenerateSocialPost, h.postOnly(h.GenerateSocialPost))
}

// GenerateRecipe handles POST /api/generate-recipe
func (h *GatewayHandlers) GenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var form recipe.FormState
	if !h.decode(w, r, &form) {
		return
	}
	normalized, err := form.Normalize()
	if err != nil {
		h.fail(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	generated, err := h.gateway.CreateRecipe(r.Context(), normalized)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, generated)
}

// GenerateImage handles POST /api/generate-image
func (h *GatewayHandlers) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req outbound.ImageRequest
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.gateway.CreateImage(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gateway.ImageResponse{ImageURL: url})
}

// GenerateVideo handles POST /api/generate-video
func (h *GatewayHandlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req outbound.VideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, err := h.gateway.InitiateVideo(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, op)
}

// VideoStatus handles POST /api/get-video-status
func (h *GatewayHandlers) VideoStatus(w http.ResponseWriter, r *http.Request) {
	var req gateway.VideoStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, err := h.gateway.PollVideo(r.Context(), req.Operation)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, op)
}

// VideoFile handles POST /api/get-video-file by streaming the video bytes
func (h *GatewayHandlers) VideoFile(w http.ResponseWriter, r *http.Request) {
	var req gateway.VideoFileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DownloadLink) == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, gateway.ErrorBody{Error: msgDownloadLinkRequired})
		return
	}

	artifact, err := h.gateway.FetchVideoArtifact(r.Context(), req.DownloadLink)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer artifact.Body.Close()

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	if artifact.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, artifact.Body); err != nil {
		h.logger.Warn("Video stream interrupted", zap.Int64("bytes", n), zap.Error(err))
	}
}

// GenerateSocialPost handles POST /api/generate-social-post
func (h *GatewayHandlers) GenerateSocialPost(w http.ResponseWriter, r *http.Request) {
	var req outbound.SocialPostRequest
	if !h.decode(w, r, &req) {
		return
	}
	lang, err := recipe.ParseLanguage(string(req.Language))
	if err != nil {
		h.fail(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	req.Language = lang

	post, err := h.gateway.CreateSocialPost(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gateway.SocialPostResponse{Post: post})
}

// Helper methods

func (h *GatewayHandlers) postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, h.logger, http.StatusMethodNotAllowed, gateway.ErrorBody{Error: gateway.MsgPostOnly})
			return
		}
		next(w, r)
	}
}

// decode reads and validates the body, answering 400 on failure
func (h *GatewayHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst, false); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, gateway.ErrorBody{Error: apperrors.MessageOf(err)})
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, gateway.ErrorBody{Error: describe(err)})
		return false
	}
	return true
}

// fail answers validation failures with 400 and everything else with 500
func (h *GatewayHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeValidationFailed, apperrors.CodeBadRequest:
		status = http.StatusBadRequest
	default:
		h.logger.Error("Gateway request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, h.logger, status, gateway.ErrorBody{Error: describe(err)})
}

// describe prefers AppError details over the generic message for field
// errors
func describe(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Code == apperrors.CodeValidationFailed && appErr.Details != "" {
			return appErr.Details
		}
		return appErr.Message
	}
	return err.Error()
}
