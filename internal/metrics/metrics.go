// Package metrics holds the Prometheus collectors for the key dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dandi_http_request_duration_seconds",
	Help:    "Request latency",
	Buckets: prometheus.ExponentialBucketsRange(.005, 10, 15),
}, []string{"route", "status_code"})

var KeysCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dandi_keys_created_total",
	Help: "API keys created",
})

var KeysDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dandi_keys_deleted_total",
	Help: "API keys deleted",
})

var KeyValidations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dandi_key_validations_total",
	Help: "Key validations by outcome",
}, []string{"reason"})

var KeyUsage = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dandi_key_usage_total",
	Help: "Authenticated requests made with an API key",
})

// Middleware records request latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		routeName := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routeName = rctx.RoutePattern()
		}
		latency.WithLabelValues(routeName, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}
