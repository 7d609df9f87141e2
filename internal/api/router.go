package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/partyevents/partyevents/internal/feed"
	"github.com/partyevents/partyevents/internal/querystore"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, store *querystore.Store, f *feed.Feed, health HealthCheck, logger *slog.Logger) {
	handler := NewHandler(store, f, logger)

	mux.HandleFunc("/healthz", handler.HealthHandler(health))

	// Filtered feed
	mux.HandleFunc("/api/events", handler.GetEventsHandler)

	// Filter query
	mux.HandleFunc("/api/filters", withCORS(handler.HandleFilters))
	mux.HandleFunc("/api/filters/active", withCORS(handler.GetActiveFiltersHandler))
	mux.HandleFunc("/api/filters/active/remove", withCORS(handler.RemoveActiveFilterHandler))
	mux.HandleFunc("/api/filters/", withCORS(handler.ToggleHandler))
}

// withCORS answers preflight requests and passes everything else through.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
