package handlers

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MediaSource opens locally stored media objects
type MediaSource interface {
	Open(key string) (*os.File, fs.FileInfo, error)
}

// MediaHandler serves GET /media/{key...}
type MediaHandler struct {
	source MediaSource
	logger *zap.Logger
}

// NewMediaHandler creates a media handler
func NewMediaHandler(source MediaSource, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{source: source, logger: logger.Named("media")}
}

// ServeHTTP streams the object with range support. ?download=<name> turns
// the response into an attachment.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	f, info, err := h.source.Open(key)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	defer f.Close()

	if name := strings.TrimSpace(r.URL.Query().Get("download")); name != "" {
		w.Header().Set("Content-Disposition", attachment(path.Base(name)))
	}
	if strings.HasSuffix(key, ".mp4") {
		w.Header().Set("Content-Type", "video/mp4")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
