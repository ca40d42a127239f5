// Package api assembles the HTTP surface: versioned digit routes, admin
// cache management, health probes, metrics and docs.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"constantdb/pkg/api/handlers"
	"constantdb/pkg/storage"
)

// ReadyFunc reports whether the service is ready to serve digit reads.
type ReadyFunc func() bool

// NewRouter builds the full HTTP handler. The registry is the only state the
// routes touch; ready gates /readyz.
func NewRouter(reg *storage.Registry, rl RateLimitConfig, ready ReadyFunc) http.Handler {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyzHandler(reg, ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterConstants(v1, reg)
	handlers.RegisterDigits(v1, reg)
	handlers.RegisterAdmin(v1.PathPrefix("/admin").Subrouter(), reg)

	return RateLimitMiddleware(rl)(r)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyzHandler reports ready only when startup finished and at least one
// constant was discovered.
func readyzHandler(reg *storage.Registry, ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if (ready != nil && !ready()) || len(reg.Available()) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
