// Package handlers provides HTTP handlers for the gateway contract, the
// studio API and stored media
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/infrastructure/http/middleware"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeAppError writes err in the structured error envelope and logs
// server-side failures
func writeAppError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr := apperrors.Wrap(err, "An unexpected error occurred")
	if appErr.StatusCode() >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}
	middleware.WriteError(w, r, appErr)
}

// decodeJSON decodes the request body into dst. An empty body is allowed
// when optional is set and leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.NewBadRequestError("Request body is too large")
		}
		return apperrors.NewBadRequestError("Invalid JSON payload").WithCause(err)
	}
	return nil
}
