package storage

import (
	"errors"
	"fmt"

	"github.com/balajivenky06/dandi/internal/domain"
)

// Unavailable wraps a transport or backend failure as domain.ErrStoreUnavailable.
// Errors already in the domain taxonomy pass through unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidationRejected) ||
		errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// Rejected wraps a constraint violation as domain.ErrValidationRejected.
func Rejected(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrValidationRejected, err)
}

// DuplicateSecret reports a secret uniqueness violation.
func DuplicateSecret(op string) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrValidationRejected, domain.ErrDuplicateSecret)
}
