package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "photobooth-api/internal/errors"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidIndex), errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnknownCollection), errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrNoSelection), errors.Is(err, apperrors.ErrNotSelectable), errors.Is(err, apperrors.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrTransportFailure), errors.Is(err, apperrors.ErrNoImageReturned):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrAssetMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrStorageExhausted):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}
