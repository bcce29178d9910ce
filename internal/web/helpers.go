package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/validation"
	"github.com/rs/zerolog/log"
)

// wantsJSON reports whether the request came from the page script.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// redirectWithError sends the browser to path with a flash error.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// flashFromQuery turns ?error= and ?success= into a flash message.
func flashFromQuery(r *http.Request) *FlashMessage {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		return &FlashMessage{Type: "error", Message: msg}
	}
	if msg := q.Get("success"); msg != "" {
		return &FlashMessage{Type: "success", Message: msg}
	}
	return nil
}

// userMessage maps errors the controller rejects locally onto flash text.
// Store failures already show on the dashboard banner, so they map to "".
func userMessage(err error) string {
	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		return titleCase(vErr.Message)
	case errors.Is(err, domain.ErrLimitReached):
		return "You have reached the maximum limit of API keys."
	case errors.Is(err, domain.ErrBusy):
		return "Another change is still in progress. Please try again."
	case errors.Is(err, domain.ErrNotFound):
		return "That API key no longer exists."
	case errors.Is(err, domain.ErrClosed):
		return "The dashboard is shutting down."
	}
	return ""
}

// writeJSON responds to the page script.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
