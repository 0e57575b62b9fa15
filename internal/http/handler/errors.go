package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vidtube/vidtube-backend/internal/http/response"
	"github.com/vidtube/vidtube-backend/internal/service"
)

// writeServiceError maps the service error taxonomy onto the HTTP envelope.
// Token-layer failures collapse into one 401 so callers cannot distinguish
// expired from forged from rotated-out. Unknown errors are logged in full and
// reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		response.Error(w, r, http.StatusConflict, "CONFLICT", service.ErrConflict.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrStaleToken):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
	case errors.Is(err, service.ErrUpload):
		slog.ErrorContext(r.Context(), "upload failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "UPLOAD_FAILED", "file upload failed", nil)
	default:
		slog.ErrorContext(r.Context(), "internal error", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "something went wrong", nil)
	}
}
