package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/metrics"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/balajivenky06/dandi/internal/validation"
	"github.com/rs/zerolog/log"
)

// Reason explains why a candidate key was rejected.
type Reason string

const (
	ReasonEmpty            Reason = "Empty"
	ReasonBadFormat        Reason = "BadFormat"
	ReasonNotFound         Reason = "NotFound"
	ReasonStoreUnavailable Reason = "StoreUnavailable"
)

const (
	msgInvalidKey       = "Invalid API key"
	msgStoreUnavailable = "Unable to validate API key right now. Please try again later."
)

// Result is the outcome of a validation. Record is set only when Valid.
type Result struct {
	Valid   bool              `json:"valid"`
	Record  *domain.KeyRecord `json:"record,omitempty"`
	Reason  Reason            `json:"reason,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Err returns the domain error for a rejected result, or nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	switch r.Reason {
	case ReasonEmpty:
		return domain.ErrEmpty
	case ReasonBadFormat:
		return domain.ErrBadFormat
	case ReasonNotFound:
		return domain.ErrNotFound
	default:
		return domain.ErrStoreUnavailable
	}
}

// Validator checks candidate keys against the store.
type Validator struct {
	store storage.Storage
}

func NewValidator(store storage.Storage) *Validator {
	return &Validator{store: store}
}

// Validate checks candidate's shape locally, then looks it up. It never
// modifies the record.
func (v *Validator) Validate(ctx context.Context, candidate string) Result {
	res := v.validate(ctx, candidate)
	label := string(res.Reason)
	if res.Valid {
		label = "Valid"
	}
	metrics.KeyValidations.WithLabelValues(label).Inc()
	return res
}

func (v *Validator) validate(ctx context.Context, candidate string) Result {
	if err := validation.ValidateSecret(candidate); err != nil {
		var vErr *validation.ValidationError
		msg := err.Error()
		if errors.As(err, &vErr) {
			msg = vErr.Message
		}
		if errors.Is(err, domain.ErrEmpty) {
			return Result{Reason: ReasonEmpty, Message: msg}
		}
		return Result{Reason: ReasonBadFormat, Message: msg}
	}

	rec, err := v.store.FindKeyBySecret(ctx, candidate)
	if err != nil {
		log.Error().Err(err).Msg("Key lookup failed")
		return Result{Reason: ReasonStoreUnavailable, Message: msgStoreUnavailable}
	}
	if rec == nil {
		return Result{Reason: ReasonNotFound, Message: msgInvalidKey}
	}
	return Result{Valid: true, Record: rec}
}

// Consume validates key and counts one use of it. It backs request
// authentication; the returned record carries the updated usage.
func (v *Validator) Consume(ctx context.Context, key string) (*domain.KeyRecord, error) {
	res := v.Validate(ctx, key)
	if !res.Valid {
		return nil, res.Err()
	}
	rec, err := v.store.IncrementUsage(ctx, res.Record.ID)
	if err != nil {
		return nil, fmt.Errorf("counting key usage: %w", err)
	}
	metrics.KeyUsage.Inc()
	return rec, nil
}
