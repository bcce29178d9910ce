package web

import (
	"errors"
	"net/http"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/session"
	"github.com/rs/zerolog/log"
)

type playgroundView struct {
	Error string
}

type protectedView struct {
	Record *domain.KeyRecord
}

func (s *Server) handlePlaygroundPage(w http.ResponseWriter, r *http.Request) {
	var view playgroundView
	if flash := flashFromQuery(r); flash != nil && flash.Type == "error" {
		view.Error = flash.Message
	}
	s.renderPlayground(w, http.StatusOK, view)
}

// handlePlaygroundSubmit validates the submitted key and, if it is valid,
// opens a gate session for the protected page.
func (s *Server) handlePlaygroundSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	candidate := r.FormValue("key")
	res := s.validator.Validate(r.Context(), candidate)
	if !res.Valid {
		status := http.StatusUnauthorized
		switch res.Reason {
		case service.ReasonEmpty, service.ReasonBadFormat:
			status = http.StatusBadRequest
		case service.ReasonStoreUnavailable:
			status = http.StatusServiceUnavailable
		}
		s.renderPlayground(w, status, playgroundView{Error: res.Message})
		return
	}

	sess := session.New(candidate, s.gateTTL)
	if err := s.gates.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("Failed to save gate session")
		s.renderPlayground(w, http.StatusServiceUnavailable, playgroundView{
			Error: "An error occurred while validating the API key",
		})
		return
	}

	s.setGateCookie(w, sess.ID)
	http.Redirect(w, r, "/protected", http.StatusSeeOther)
}

// handleProtected re-validates the gate session's key on every load.
func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(gateCookieName)
	if err != nil || cookie.Value == "" {
		http.Redirect(w, r, "/playground", http.StatusSeeOther)
		return
	}

	sess, err := s.gates.Get(ctx, cookie.Value)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		s.leaveGate(w, r, cookie.Value, "Your session has expired. Please enter your API key again.")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to read gate session")
		s.renderError(w, "Unable to check your session right now. Please try again later.", http.StatusServiceUnavailable)
		return
	}
	if !sess.Validated || sess.Expired(s.now()) {
		s.leaveGate(w, r, sess.ID, "Your session has expired. Please enter your API key again.")
		return
	}

	res := s.validator.Validate(ctx, sess.Secret)
	if !res.Valid {
		if res.Reason == service.ReasonStoreUnavailable {
			s.renderError(w, res.Message, http.StatusServiceUnavailable)
			return
		}
		s.leaveGate(w, r, sess.ID, res.Message)
		return
	}

	s.render(w, "base-noauth", "protected", PageData{
		Title:   "Protected Content",
		Active:  "playground",
		Content: protectedView{Record: res.Record},
	})
}

func (s *Server) handleLeaveProtected(w http.ResponseWriter, r *http.Request) {
	id := ""
	if cookie, err := r.Cookie(gateCookieName); err == nil {
		id = cookie.Value
	}
	s.leaveGate(w, r, id, "")
}

// leaveGate drops the gate session and sends the browser back to the playground.
func (s *Server) leaveGate(w http.ResponseWriter, r *http.Request, id, message string) {
	if id != "" {
		if err := s.gates.Delete(r.Context(), id); err != nil {
			log.Warn().Err(err).Msg("Failed to delete gate session")
		}
	}
	s.clearGateCookie(w)
	if message == "" {
		http.Redirect(w, r, "/playground", http.StatusSeeOther)
		return
	}
	redirectWithError(w, r, "/playground", message)
}

func (s *Server) renderPlayground(w http.ResponseWriter, status int, view playgroundView) {
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	s.render(w, "base-noauth", "playground", PageData{
		Title:   "API Playground",
		Active:  "playground",
		Content: view,
	})
}
