package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/balajivenky06/dandi/internal/auth"
	"github.com/balajivenky06/dandi/internal/secret"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/session"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/* static/*
var content embed.FS

// OIDC bundles the pieces of the optional operator login.
type OIDC struct {
	Provider  *auth.OIDCProvider
	Sessions  *auth.SessionManager
	States    *auth.StateStore
	LogoutURL string
}

// Options holds the dependencies of the web UI.
type Options struct {
	Keys      *service.Controller
	Validator *service.Validator
	Gates     session.Store
	GateTTL   time.Duration
	MaxKeys   int
	// ToastDuration is how long the page script shows a toast.
	ToastDuration time.Duration
	// SecureCookies sets the Secure flag on the gate cookie.
	SecureCookies bool
	// OIDC protects the dashboard when set. The playground stays public.
	OIDC *OIDC
}

// Server holds dependencies for web handlers.
type Server struct {
	keys          *service.Controller
	validator     *service.Validator
	gates         session.Store
	gateTTL       time.Duration
	maxKeys       int
	toastDuration time.Duration
	secureCookies bool

	oidcProvider  *auth.OIDCProvider
	sessions      *auth.SessionManager
	stateStore    *auth.StateStore
	oidcLogoutURL string

	templates map[string]*template.Template
	funcMap   template.FuncMap
	now       func() time.Time
}

// NewRouter creates the dashboard and playground router.
func NewRouter(opts Options) http.Handler {
	s := &Server{
		keys:          opts.Keys,
		validator:     opts.Validator,
		gates:         opts.Gates,
		gateTTL:       opts.GateTTL,
		maxKeys:       opts.MaxKeys,
		toastDuration: opts.ToastDuration,
		secureCookies: opts.SecureCookies,
		now:           time.Now,
	}
	if opts.OIDC != nil {
		s.oidcProvider = opts.OIDC.Provider
		s.sessions = opts.OIDC.Sessions
		s.stateStore = opts.OIDC.States
		s.oidcLogoutURL = opts.OIDC.LogoutURL
	}

	s.templates = s.parseTemplates()

	r := chi.NewRouter()

	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Gated playground, always public
	r.Get("/playground", s.handlePlaygroundPage)
	r.Post("/playground", s.handlePlaygroundSubmit)
	r.Get("/protected", s.handleProtected)
	r.Post("/protected/leave", s.handleLeaveProtected)

	if s.oidcEnabled() {
		r.Get("/login", s.handleLoginPage)
		r.Get("/auth/login", s.handleOIDCLogin)
		r.Get("/auth/callback", s.handleOIDCCallback)
		r.Get("/logout", s.handleLogout)
	}

	// Dashboard
	r.Group(func(r chi.Router) {
		r.Use(s.operatorAuth)

		r.Get("/", s.handleDashboard)

		r.Post("/keys", s.handleKeyCreate)
		r.Post("/keys/reload", s.handleKeysReload)
		r.Post("/keys/undo", s.handleKeyUndo)
		r.Post("/keys/edit/cancel", s.handleKeyEditCancel)
		r.Post("/keys/delete/confirm", s.handleKeyDeleteConfirm)
		r.Post("/keys/delete/cancel", s.handleKeyDeleteCancel)
		r.Post("/keys/{id}/edit", s.handleKeyEdit)
		r.Post("/keys/{id}/save", s.handleKeySave)
		r.Post("/keys/{id}/delete", s.handleKeyDelete)
		r.Post("/keys/{id}/visibility", s.handleKeyVisibility)
		r.Post("/keys/{id}/copy", s.handleKeyCopy)

		r.Post("/notifications/dismiss", s.handleDismissNotification)
		r.Post("/errors/dismiss", s.handleDismissError)
	})

	return r
}

func (s *Server) oidcEnabled() bool {
	return s.oidcProvider != nil && s.sessions != nil && s.stateStore != nil
}

// parseTemplates parses every page together with the base layout and components.
func (s *Server) parseTemplates() map[string]*template.Template {
	s.funcMap = template.FuncMap{
		"dict":     dict,
		"mask":     secret.Mask,
		"lower":    strings.ToLower,
		"title":    titleCase,
		"datetime": formatTime,
		"percent":  percent,
		"ms":       func(d time.Duration) int64 { return d.Milliseconds() },
	}

	templates := make(map[string]*template.Template)

	baseContent, _ := content.ReadFile("templates/base.html")
	navContent, _ := content.ReadFile("templates/components/nav.html")
	flashContent, _ := content.ReadFile("templates/components/flash.html")
	modalContent, _ := content.ReadFile("templates/components/modal.html")
	toastContent, _ := content.ReadFile("templates/components/toast.html")

	baseWithComponents := string(baseContent) + string(navContent) + string(flashContent) +
		string(modalContent) + string(toastContent)

	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl, err := template.New(pageName).Funcs(s.funcMap).Parse(baseWithComponents + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}
		templates[pageName] = tmpl
	}

	return templates
}

// dict creates a map from key-value pairs for use in templates.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

func percent(n, of int) string {
	if of <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(of))
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title    string
	Active   string // Current nav item
	Flash    *FlashMessage
	Operator *auth.Operator
	Content  any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error", "info"
	Message string
}
