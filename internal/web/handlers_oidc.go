package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/balajivenky06/dandi/internal/auth"
	"github.com/rs/zerolog/log"
)

type loginView struct {
	Error string
}

// handleLoginPage shows the sign-in page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Get(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.render(w, "base-noauth", "login", PageData{
		Title:   "Sign in",
		Content: loginView{Error: r.URL.Query().Get("error")},
	})
}

// handleOIDCLogin initiates the OIDC login flow.
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	stateData, err := s.stateStore.Generate(w)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate OIDC state")
		redirectWithError(w, r, "/login", "Failed to initiate login")
		return
	}

	http.Redirect(w, r, s.oidcProvider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// handleOIDCCallback handles the OIDC callback after authentication.
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		errDesc := q.Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		log.Warn().Str("error", errParam).Str("description", errDesc).Msg("OIDC provider returned error")
		redirectWithError(w, r, "/login", errDesc)
		return
	}

	code := q.Get("code")
	if code == "" {
		redirectWithError(w, r, "/login", "No authorization code received")
		return
	}

	stateData, err := s.stateStore.Validate(r, q.Get("state"))
	if err != nil {
		log.Warn().Err(err).Msg("OIDC state validation failed")
		redirectWithError(w, r, "/login", "Invalid state parameter")
		return
	}
	s.stateStore.Clear(w)

	op, err := s.oidcProvider.Exchange(r.Context(), code, stateData.Nonce)
	if err != nil {
		log.Warn().Err(err).Msg("OIDC token exchange failed")
		msg := "Failed to complete authentication"
		if errors.Is(err, auth.ErrDomainNotAllowed) {
			msg = err.Error()
		}
		redirectWithError(w, r, "/login", msg)
		return
	}

	if err := s.sessions.Create(w, op); err != nil {
		log.Error().Err(err).Msg("Failed to create operator session")
		redirectWithError(w, r, "/login", "Failed to create session")
		return
	}

	log.Info().Str("email", op.Email).Msg("Operator signed in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the operator session and optionally ends the
// provider session too.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)

	if s.oidcLogoutURL != "" {
		if _, err := url.Parse(s.oidcLogoutURL); err == nil {
			http.Redirect(w, r, s.oidcLogoutURL, http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
