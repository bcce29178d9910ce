package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/balajivenky06/dandi/internal/clipboard"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// nearLimitMargin is how close to MaxKeys the dashboard starts warning.
const nearLimitMargin = 50

// keyRow is one line of the key table.
type keyRow struct {
	*domain.KeyRecord
	Visible bool
	Copied  bool
	Editing bool
}

type dashboardView struct {
	State         service.State
	Rows          []keyRow
	Count         int
	MaxKeys       int
	NearLimit     bool
	AtLimit       bool
	PendingDelete *domain.KeyRecord
	ToastDuration time.Duration
}

// handleDashboard renders the key list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st := s.keys.Snapshot()

	rows := make([]keyRow, 0, len(st.Keys))
	for _, k := range st.Keys {
		rows = append(rows, keyRow{
			KeyRecord: k,
			Visible:   st.Visible[k.ID],
			Copied:    st.CopiedID == k.ID,
			Editing:   st.EditingID == k.ID,
		})
	}

	view := dashboardView{
		State:         st,
		Rows:          rows,
		Count:         len(st.Keys),
		MaxKeys:       s.maxKeys,
		NearLimit:     s.maxKeys > 0 && len(st.Keys) >= s.maxKeys-nearLimitMargin,
		AtLimit:       s.maxKeys > 0 && len(st.Keys) >= s.maxKeys,
		ToastDuration: s.toastDuration,
	}
	if st.PendingDeleteID != "" {
		view.PendingDelete = st.Key(st.PendingDeleteID)
	}

	s.render(w, "base", "dashboard", PageData{
		Title:    "Overview",
		Active:   "dashboard",
		Flash:    flashFromQuery(r),
		Operator: getOperator(r.Context()),
		Content:  view,
	})
}

// handleKeyCreate creates a key from the create form.
func (s *Server) handleKeyCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	_, err := s.keys.Create(r.Context(), r.FormValue("name"), r.FormValue("type"))
	s.backToDashboard(w, r, err)
}

// handleKeysReload refetches the key list from the store.
func (s *Server) handleKeysReload(w http.ResponseWriter, r *http.Request) {
	err := s.keys.Load(r.Context())
	if errors.Is(err, domain.ErrLoadFailed) {
		err = nil
	}
	s.backToDashboard(w, r, err)
}

// handleKeyEdit switches a row into rename mode.
func (s *Server) handleKeyEdit(w http.ResponseWriter, r *http.Request) {
	err := s.keys.StartEdit(chi.URLParam(r, "id"))
	s.backToDashboard(w, r, err)
}

// handleKeySave stores the new name of the row being edited.
func (s *Server) handleKeySave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	s.keys.SetEditBuffer(name)
	_, err := s.keys.SaveEdit(r.Context(), chi.URLParam(r, "id"), name)
	s.backToDashboard(w, r, err)
}

func (s *Server) handleKeyEditCancel(w http.ResponseWriter, r *http.Request) {
	s.keys.CancelEdit()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleKeyUndo restores the name replaced by the last rename. An expired
// undo is silently ignored.
func (s *Server) handleKeyUndo(w http.ResponseWriter, r *http.Request) {
	_, err := s.keys.UndoEdit(r.Context())
	s.backToDashboard(w, r, err)
}

// handleKeyDelete marks a key for deletion. The dashboard then shows the
// confirmation dialog.
func (s *Server) handleKeyDelete(w http.ResponseWriter, r *http.Request) {
	err := s.keys.RequestDelete(chi.URLParam(r, "id"))
	s.backToDashboard(w, r, err)
}

func (s *Server) handleKeyDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	err := s.keys.ConfirmDelete(r.Context())
	s.backToDashboard(w, r, err)
}

func (s *Server) handleKeyDeleteCancel(w http.ResponseWriter, r *http.Request) {
	s.keys.CancelDelete()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleKeyVisibility toggles whether a secret is shown unmasked.
func (s *Server) handleKeyVisibility(w http.ResponseWriter, r *http.Request) {
	visible := s.keys.ToggleVisibility(chi.URLParam(r, "id"))
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"visible": visible})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleKeyCopy hands the full secret to the page script, which writes it
// to the browser clipboard.
func (s *Server) handleKeyCopy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	buf := &clipboard.Buffer{}

	if err := s.keys.CopySecretTo(r.Context(), id, buf); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		if wantsJSON(r) {
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		s.backToDashboard(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"key": buf.Text(), "message": service.MsgCopied})
		return
	}

	// Without script the only way to copy is by hand.
	if !s.keys.Snapshot().Visible[id] {
		s.keys.ToggleVisibility(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	s.keys.DismissNotification()
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	s.keys.DismissError()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// backToDashboard redirects home after an action. Locally rejected actions
// carry a flash message; store failures are already on the error banner.
func (s *Server) backToDashboard(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Dashboard action failed")
		if msg := userMessage(err); msg != "" {
			redirectWithError(w, r, "/", msg)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// render renders a page template with the given base.
func (s *Server) render(w http.ResponseWriter, base, page string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}

	if err := tmpl.ExecuteTemplate(w, base, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// renderError renders an error page.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	s.render(w, "base-noauth", "error", PageData{
		Title: "Error",
		Flash: &FlashMessage{Type: "error", Message: message},
	})
}
