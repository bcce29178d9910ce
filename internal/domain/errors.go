package domain

import "errors"

// Errors returned by the key store gateway, the controller and the validator.
// Store implementations never leak backend error types; they wrap one of these.
var (
	ErrEmpty              = errors.New("empty key")
	ErrBadFormat          = errors.New("malformed key")
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrValidationRejected = errors.New("rejected by store")
	ErrDuplicateSecret    = errors.New("duplicate secret")
	ErrLoadFailed         = errors.New("failed to load API keys")
	ErrCreateFailed       = errors.New("failed to create API key")
	ErrUpdateFailed       = errors.New("failed to update API key")
	ErrDeleteFailed       = errors.New("failed to delete API key")
	ErrClipboardFailed    = errors.New("failed to copy to clipboard")
	ErrInvalidInput       = errors.New("invalid input")
	ErrLimitReached       = errors.New("maximum number of API keys reached")
	ErrBusy               = errors.New("another operation is in progress")
	ErrClosed             = errors.New("controller closed")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeLimitReached     = "LIMIT_REACHED"
	ErrCodeBusy             = "BUSY"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
