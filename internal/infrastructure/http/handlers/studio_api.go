package handlers

import (
	"encoding/base64"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/application/generation"
	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/infrastructure/security"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// StudioHandlers exposes the studio intents under /api/v1/studio
type StudioHandlers struct {
	studio    inbound.StudioService
	validator *security.ValidationService
	logger    *zap.Logger
}

// NewStudioHandlers creates the studio handlers
func NewStudioHandlers(studio inbound.StudioService, validator *security.ValidationService, logger *zap.Logger) *StudioHandlers {
	return &StudioHandlers{
		studio:    studio,
		validator: validator,
		logger:    logger.Named("studio_api"),
	}
}

// Request types

// RateRequest is the body of POST /active/rating
type RateRequest struct {
	Rating int `json:"rating" validate:"min=1,max=5"`
}

// NotesRequest is the body of PUT /saved/{name}/notes
type NotesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

// ViewerRequest is the body of POST /viewer
type ViewerRequest struct {
	RecipeName string `json:"recipeName" validate:"required"`
}

// SocialRequest is the body of POST /social
type SocialRequest struct {
	RecipeName string `json:"recipeName"`
	Language   string `json:"language" validate:"recipe_language"`
}

// PostResponse carries a generated social post
type PostResponse struct {
	Post string `json:"post"`
}

// CancelResponse reports whether a running job was stopped
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// Routes registers every studio endpoint on r. The event stream is
// mounted by the server outside the request timeout.
func (h *StudioHandlers) Routes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Put("/form", h.UpdateForm)
	r.Post("/generate", h.Generate)

	r.Route("/saved", func(r chi.Router) {
		r.Get("/", h.SearchSaved)
		r.Post("/", h.Save)
		r.Delete("/{name}", h.DeleteSaved)
		r.Post("/{name}/select", h.SelectSaved)
		r.Put("/{name}/notes", h.UpdateNotes)
	})

	r.Post("/active/rating", h.Rate)
	r.Post("/active/video", h.GenerateVideo)
	r.Get("/active/image", h.DownloadImage)
	r.Delete("/videos/{id}", h.CancelVideo)

	r.Post("/viewer", h.OpenViewer)
	r.Delete("/viewer", h.CloseViewer)

	r.Post("/social", h.SocialPost)
	r.Get("/share/email", h.ShareEmail)
}

// GetState handles GET /state
func (h *StudioHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.studio.State())
}

// UpdateForm handles PUT /form
func (h *StudioHandlers) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var form recipe.FormState
	if err := decodeJSON(r, &form, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	updated, err := h.studio.UpdateForm(r.Context(), form)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

// Generate handles POST /generate. The body is optional and replaces the
// stored form when present.
func (h *StudioHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var form *recipe.FormState
	if err := decodeJSON(r, &form, true); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	generated, err := h.studio.Generate(r.Context(), form)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, generated)
}

// Save handles POST /saved
func (h *StudioHandlers) Save(w http.ResponseWriter, r *http.Request) {
	saved, err := h.studio.Save(r.Context())
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, saved)
}

// SearchSaved handles GET /saved?q=
func (h *StudioHandlers) SearchSaved(w http.ResponseWriter, r *http.Request) {
	found := h.studio.SearchSaved(r.URL.Query().Get("q"))
	if found == nil {
		found = []recipe.Recipe{}
	}
	writeJSON(w, h.logger, http.StatusOK, found)
}

// SelectSaved handles POST /saved/{name}/select
func (h *StudioHandlers) SelectSaved(w http.ResponseWriter, r *http.Request) {
	name, ok := h.nameParam(w, r)
	if !ok {
		return
	}

	selected, err := h.studio.SelectSaved(r.Context(), name)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, selected)
}

// DeleteSaved handles DELETE /saved/{name}
func (h *StudioHandlers) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	name, ok := h.nameParam(w, r)
	if !ok {
		return
	}

	if err := h.studio.Delete(r.Context(), name); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateNotes handles PUT /saved/{name}/notes
func (h *StudioHandlers) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	name, ok := h.nameParam(w, r)
	if !ok {
		return
	}
	var req NotesRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.studio.UpdateNotes(r.Context(), name, req.Notes)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

// Rate handles POST /active/rating
func (h *StudioHandlers) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !h.decode(w, r, &req) {
		return
	}

	rated, err := h.studio.Rate(r.Context(), req.Rating)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rated)
}

// GenerateVideo handles POST /active/video. The job runs in the
// background; progress arrives on the event stream.
func (h *StudioHandlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	started, err := h.studio.GenerateVideo(r.Context())
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusAccepted, started)
}

// CancelVideo handles DELETE /videos/{id}
func (h *StudioHandlers) CancelVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, h.logger, apperrors.NewBadRequestError("Invalid recipe ID").WithCause(err))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CancelResponse{Cancelled: h.studio.CancelVideo(r.Context(), id)})
}

// OpenViewer handles POST /viewer
func (h *StudioHandlers) OpenViewer(w http.ResponseWriter, r *http.Request) {
	var req ViewerRequest
	if !h.decode(w, r, &req) {
		return
	}

	viewer, err := h.studio.OpenVideoViewer(r.Context(), req.RecipeName)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, viewer)
}

// CloseViewer handles DELETE /viewer
func (h *StudioHandlers) CloseViewer(w http.ResponseWriter, r *http.Request) {
	h.studio.CloseVideoViewer(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SocialPost handles POST /social
func (h *StudioHandlers) SocialPost(w http.ResponseWriter, r *http.Request) {
	var req SocialRequest
	if !h.decode(w, r, &req) {
		return
	}

	// an empty language is passed through so the form language applies
	lang := recipe.Language(strings.TrimSpace(req.Language))
	post, err := h.studio.GenerateSocialPost(r.Context(), req.RecipeName, lang)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, PostResponse{Post: post})
}

// ShareEmail handles GET /share/email
func (h *StudioHandlers) ShareEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.studio.ShareByEmail(r.Context())
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, email)
}

// DownloadImage handles GET /active/image by decoding the active recipe's
// data URL into an attachment named after the recipe
func (h *StudioHandlers) DownloadImage(w http.ResponseWriter, r *http.Request) {
	active := h.studio.State().ActiveRecipe
	if active == nil || !active.HasImage() {
		writeAppError(w, r, h.logger, apperrors.NewNotFoundError("image"))
		return
	}

	data, mimeType, err := generation.ParseDataURL(active.ImageURL)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		writeAppError(w, r, h.logger, apperrors.NewInternalError("Stored image is not valid base64").WithCause(err))
		return
	}

	name := recipe.DownloadName(active.Name, imageExtension(mimeType))
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.Header().Set("Content-Disposition", attachment(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// nameParam reads the {name} segment. chi matches on RawPath when the
// client escaped reserved characters, so the segment is unescaped here.
func (h *StudioHandlers) nameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, true
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		writeAppError(w, r, h.logger, apperrors.NewBadRequestError("Invalid recipe name").WithCause(err))
		return "", false
	}
	return decoded, true
}

func (h *StudioHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		writeAppError(w, r, h.logger, err)
		return false
	}
	return true
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// attachment builds a Content-Disposition value, switching to the
// RFC 2231 extended form for non-ASCII names
func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
