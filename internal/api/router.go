// Package api exposes the journal and pattern operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/api/recovery"
	"github.com/spiffler33/lean-insights/internal/api/respond"
	"github.com/spiffler33/lean-insights/internal/services"
)

// Pinger reports backing-store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles all routes behind the panic-recovery middleware.
func NewRouter(svc *services.JournalService, pinger Pinger, log zerolog.Logger) http.Handler {
	entries := NewEntryHandler(svc)
	patterns := NewPatternHandler(svc)

	r := mux.NewRouter()
	r.Use(recovery.Middleware(log))

	r.HandleFunc("/v0/health", healthHandler(pinger)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/users/{userId}").Subrouter()
	api.HandleFunc("/entries", entries.CreateEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries", entries.ListEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries/{entryId}", entries.GetEntry).Methods(http.MethodGet)
	api.HandleFunc("/entries/{entryId}", entries.UpdateEntry).Methods(http.MethodPut)
	api.HandleFunc("/entries/{entryId}", entries.DeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/export", entries.Export).Methods(http.MethodGet)

	api.HandleFunc("/patterns", patterns.GetPatterns).Methods(http.MethodGet)
	api.HandleFunc("/insights", patterns.GetInsights).Methods(http.MethodGet)
	api.HandleFunc("/context", patterns.GetContext).Methods(http.MethodPost)
	api.HandleFunc("/stats", patterns.GetStats).Methods(http.MethodGet)

	return r
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			respond.WriteError(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
