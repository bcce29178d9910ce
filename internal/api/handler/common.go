package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/validation"
	"github.com/rs/zerolog/log"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

// respondError writes a standardized JSON error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusBadRequest, &domain.StandardErrorResponse{
			Error: domain.StandardError{Code: domain.ErrCodeValidationError, Message: vErr.Message, Field: vErr.Field},
		})
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid input")
	case errors.Is(err, domain.ErrValidationRejected):
		respondError(w, http.StatusUnprocessableEntity, domain.ErrCodeValidationError, "rejected by store")
	case errors.Is(err, domain.ErrLimitReached):
		respondError(w, http.StatusConflict, domain.ErrCodeLimitReached, err.Error())
	case errors.Is(err, domain.ErrBusy):
		respondError(w, http.StatusConflict, domain.ErrCodeBusy, "another operation is in progress")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Msg("Key store unavailable")
		respondError(w, http.StatusServiceUnavailable, domain.ErrCodeStoreUnavailable, "store unavailable")
	default:
		log.Error().Err(err).Msg("Unhandled error")
		respondError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
