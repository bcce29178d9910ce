package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/metrics"
	"github.com/balajivenky06/dandi/internal/secret"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/balajivenky06/dandi/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// secretAttempts bounds secret regeneration on collision.
const secretAttempts = 3

// KeyHandler serves the admin key endpoints. It talks to the store directly.
type KeyHandler struct {
	store    storage.Storage
	maxKeys  int
	generate func() (string, error)
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(store storage.Storage, maxKeys int) *KeyHandler {
	return &KeyHandler{store: store, maxKeys: maxKeys, generate: secret.Generate}
}

// List lists all keys, newest first.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListKeys(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

// Create generates and stores a new key.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	if errs := validation.ValidateCreateKeyRequest(&req); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}
	name, _ := validation.ValidateKeyName(req.Name)
	kt, _ := validation.ValidateKeyType(req.Type)

	ctx := r.Context()
	n, err := h.store.CountKeys(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	if n >= h.maxKeys {
		handleError(w, fmt.Errorf("%w: maximum of %d API keys", domain.ErrLimitReached, h.maxKeys))
		return
	}

	var rec *domain.KeyRecord
	for i := 0; i < secretAttempts; i++ {
		s, genErr := h.generate()
		if genErr != nil {
			handleError(w, genErr)
			return
		}
		rec, err = h.store.InsertKey(ctx, &domain.NewKey{Name: name, Type: kt, Secret: s})
		if !errors.Is(err, domain.ErrDuplicateSecret) {
			break
		}
	}
	if err != nil {
		handleError(w, err)
		return
	}

	metrics.KeysCreated.Inc()
	log.Info().Str("id", rec.ID).Str("type", string(rec.Type)).Msg("API key created via API")
	respondJSON(w, http.StatusCreated, rec)
}

// Update renames a key.
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	var upd domain.KeyUpdate
	if req.Name != nil {
		name, err := validation.ValidateKeyName(*req.Name)
		if err != nil {
			handleError(w, err)
			return
		}
		upd.Name = &name
	}

	rec, err := h.store.UpdateKey(r.Context(), id, upd)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Delete deletes a key.
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteKey(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	metrics.KeysDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}
