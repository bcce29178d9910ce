// Package validation provides input checks for API key names, types and
// candidate secrets. The checks are purely local and never reach the store.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/secret"
)

// MaxNameLength is the longest display name accepted, in characters.
const MaxNameLength = 100

// Messages shown to users for malformed secrets.
const (
	MsgSecretEmpty    = "API key is required"
	MsgSecretLength   = "API key must be exactly 32 characters long"
	MsgSecretAlphabet = "API key can only contain letters, numbers, hyphens, and underscores"
)

// ValidateKeyName trims name and checks it is a usable display label.
// The trimmed name is returned on success.
func ValidateKeyName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewValidationError("name", name, "name is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", NewValidationError("name", name, "name must be at most 100 characters", domain.ErrInvalidInput)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", NewValidationError("name", name, "name must not contain control characters", domain.ErrInvalidInput)
		}
	}
	return trimmed, nil
}

// ValidateKeyType parses a key type, defaulting an empty value to dev.
func ValidateKeyType(keyType string) (domain.KeyType, error) {
	t, err := domain.ParseKeyType(strings.TrimSpace(keyType))
	if err != nil {
		return "", NewValidationError("type", keyType, "type must be one of: dev, prod", domain.ErrInvalidInput)
	}
	return t, nil
}

// ValidateSecret checks that candidate looks like a generated secret.
// Empty input wraps domain.ErrEmpty; any other mismatch wraps domain.ErrBadFormat.
func ValidateSecret(candidate string) error {
	if strings.TrimSpace(candidate) == "" {
		return NewValidationError("key", "", MsgSecretEmpty, domain.ErrEmpty)
	}
	// The value is never echoed back: it may be a real secret.
	if len(candidate) != secret.Length {
		return NewValidationError("key", "", MsgSecretLength, domain.ErrBadFormat)
	}
	if !secret.InAlphabet(candidate) {
		return NewValidationError("key", "", MsgSecretAlphabet, domain.ErrBadFormat)
	}
	return nil
}

// ValidateCreateKeyRequest checks every field of a create request.
func ValidateCreateKeyRequest(req *domain.CreateKeyRequest) ValidationErrors {
	var errs ValidationErrors
	if _, err := ValidateKeyName(req.Name); err != nil {
		errs = append(errs, err.(*ValidationError))
	}
	if _, err := ValidateKeyType(req.Type); err != nil {
		errs = append(errs, err.(*ValidationError))
	}
	return errs
}
