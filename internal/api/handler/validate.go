package handler

import (
	"net/http"

	"github.com/balajivenky06/dandi/internal/api/middleware"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/service"
)

// ValidateHandler checks candidate keys without counting usage.
type ValidateHandler struct {
	validator *service.Validator
}

func NewValidateHandler(validator *service.Validator) *ValidateHandler {
	return &ValidateHandler{validator: validator}
}

// Validate reports whether the posted key is valid.
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	res := h.validator.Validate(r.Context(), req.Key)

	status := http.StatusOK
	switch res.Reason {
	case service.ReasonEmpty, service.ReasonBadFormat:
		status = http.StatusBadRequest
	case service.ReasonNotFound:
		status = http.StatusUnauthorized
	case service.ReasonStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, res)
}

// Protected returns the record of the key that authenticated the request.
func Protected(w http.ResponseWriter, r *http.Request) {
	rec := middleware.KeyFromContext(r.Context())
	if rec == nil {
		respondError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "This is the protected content that can only be accessed with a valid API key.",
		"key":     rec,
	})
}
