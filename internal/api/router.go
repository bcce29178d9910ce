package api

import (
	"context"
	"net/http"
	"time"

	"github.com/balajivenky06/dandi/internal/api/handler"
	"github.com/balajivenky06/dandi/internal/api/middleware"
	"github.com/balajivenky06/dandi/internal/metrics"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options holds the dependencies of the HTTP router.
type Options struct {
	Store     storage.Storage
	Validator *service.Validator
	// Web is mounted at "/" when set.
	Web http.Handler
	// AdminToken enables the key management endpoints.
	AdminToken         string
	MaxKeys            int
	CORSAllowedOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(metrics.Middleware)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := opts.Store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		validateHandler := handler.NewValidateHandler(opts.Validator)
		r.Post("/validate", validateHandler.Validate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.KeyAuth(opts.Validator))
			r.Get("/protected", handler.Protected)
		})

		if opts.AdminToken != "" {
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminToken(opts.AdminToken))

				keyHandler := handler.NewKeyHandler(opts.Store, opts.MaxKeys)
				r.Get("/keys", keyHandler.List)
				r.Post("/keys", keyHandler.Create)
				r.Patch("/keys/{id}", keyHandler.Update)
				r.Delete("/keys/{id}", keyHandler.Delete)
			})
		}
	})

	// Mount web UI (serves HTML)
	if opts.Web != nil {
		r.Mount("/", opts.Web)
	}

	return r
}
