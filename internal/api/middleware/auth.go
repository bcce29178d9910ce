package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/balajivenky06/dandi/internal/auth"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/rs/zerolog/log"
)

type contextKey string

const KeyContextKey contextKey = "api_key"

// AdminToken requires the configured admin token as a bearer credential.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, msg := bearerToken(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, msg)
				return
			}
			if !auth.ConstantTimeCompare(presented, token) {
				writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// KeyAuth authenticates requests with an API key and counts one use of it.
func KeyAuth(validator *service.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, msg := bearerToken(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, msg)
				return
			}

			rec, err := validator.Consume(r.Context(), presented)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrEmpty), errors.Is(err, domain.ErrBadFormat), errors.Is(err, domain.ErrNotFound):
				writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid API key")
				return
			default:
				log.Error().Err(err).Msg("API key authentication failed")
				writeError(w, http.StatusServiceUnavailable, domain.ErrCodeStoreUnavailable, "unable to validate API key")
				return
			}

			ctx := context.WithValue(r.Context(), KeyContextKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the bearer credential. A non-empty message explains
// why the header was rejected.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", "invalid authorization header format"
	}
	if token == "" {
		return "", "empty API key"
	}
	return token, ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}

// KeyFromContext retrieves the authenticated key from the request context.
func KeyFromContext(ctx context.Context) *domain.KeyRecord {
	key, _ := ctx.Value(KeyContextKey).(*domain.KeyRecord)
	return key
}
