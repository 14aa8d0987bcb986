package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newHTTPRouter returns the root router with health and metrics endpoints.
// Modules mount their own routes on it.
func newHTTPRouter(obs observability.Provider, ping func(ctx context.Context) error) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := ping(ctx); err != nil {
			obs.Logger.WarnContext(ctx, "Health check failed", "error", err)
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{Registry: obs.Registry}))
	return r
}
