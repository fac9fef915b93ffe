// Package handler contains the HTTP boundary: request parsing, response
// shaping, and the websocket upgrade. No business rules live here — handlers
// call services and translate their domain errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pollchat/internal/apperror"
)

// ErrorResponse is the single error shape every endpoint returns, so the
// frontend always knows what fields to expect.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "validation_error"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response. Headers and status must be written before
// the body; once Encode starts writing, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status. The service layer
// returns apperror values; this is the one place they meet status codes.
//
// Unknown errors become a generic 500 — raw messages can carry SQL fragments
// or file paths and never go to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			// Duplicate username registers as 400, matching the registration
			// contract (not 409).
			status = http.StatusBadRequest
			errorType = "duplicate"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
