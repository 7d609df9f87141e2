package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/partyevents/partyevents/internal/feed"
	"github.com/partyevents/partyevents/internal/filter"
	"github.com/partyevents/partyevents/internal/models"
	"github.com/partyevents/partyevents/internal/querystore"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	store     *querystore.Store
	feed      *feed.Feed
	logger    *slog.Logger
	startTime time.Time
}

func NewHandler(store *querystore.Store, f *feed.Feed, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		feed:      f,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetEventsHandler handles GET /api/events
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.feed.View(), h.logger)
}

// HandleFilters handles GET, PUT, PATCH and DELETE on /api/filters
func (h *Handler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeFilters(w, http.StatusOK)
	case http.MethodPut:
		h.replaceFilters(w, r)
	case http.MethodPatch:
		h.patchFilters(w, r)
	case http.MethodDelete:
		h.store.Reset()
		h.logger.Info("filters reset", "revision", h.store.Revision())
		h.writeFilters(w, http.StatusOK)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) replaceFilters(w http.ResponseWriter, r *http.Request) {
	// Absent fields take their defaults.
	q := models.DefaultQuery()
	if err := decodeBody(w, r, &q); err != nil {
		h.writeValidationError(w, err)
		return
	}
	if err := q.Validate(); err != nil {
		h.writeValidationError(w, ValidationError{Field: "query", Message: err.Error()})
		return
	}

	h.store.Replace(q)
	h.logger.Info("filters replaced", "revision", h.store.Revision())
	h.writeFilters(w, http.StatusOK)
}

func (h *Handler) patchFilters(w http.ResponseWriter, r *http.Request) {
	var p models.QueryPatch
	if err := decodeBody(w, r, &p); err != nil {
		h.writeValidationError(w, err)
		return
	}
	if err := p.Validate(); err != nil {
		h.writeValidationError(w, ValidationError{Field: "patch", Message: err.Error()})
		return
	}

	h.store.Patch(p)
	h.logger.Debug("filters patched", "revision", h.store.Revision(), "empty", p.IsEmpty())
	h.writeFilters(w, http.StatusOK)
}

// GetActiveFiltersHandler handles GET /api/filters/active
func (h *Handler) GetActiveFiltersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, newActiveFiltersResponse(h.store.Snapshot()), h.logger)
}

// RemoveActiveFilterHandler handles POST /api/filters/active/remove
func (h *Handler) RemoveActiveFilterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var f models.ActiveFilter
	if err := decodeBody(w, r, &f); err != nil {
		h.writeValidationError(w, err)
		return
	}

	if err := h.store.RemoveActiveFilter(f); err != nil {
		if errors.Is(err, querystore.ErrUnsupportedFilterKind) {
			h.writeValidationError(w, ValidationError{Field: "type", Message: err.Error()})
			return
		}
		h.logger.Error("failed to remove active filter", "kind", f.Kind, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newActiveFiltersResponse(h.store.Snapshot()), h.logger)
}

// ToggleHandler handles POST /api/filters/categories/:category/toggle and
// POST /api/filters/cities/:city/toggle
func (h *Handler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path: /api/filters/{categories|cities}/{value}/toggle. The value is
	// read from the escaped path so it may contain an encoded "/".
	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/api/filters/")
	rest, ok := strings.CutSuffix(rest, "/toggle")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, escaped, ok := strings.Cut(rest, "/")
	if !ok || escaped == "" || strings.Contains(escaped, "/") {
		http.NotFound(w, r)
		return
	}
	value, err := url.PathUnescape(escaped)
	if err != nil {
		h.writeValidationError(w, ValidationError{Field: "path", Message: "invalid escaping in " + escaped})
		return
	}

	switch kind {
	case "categories":
		c := models.Category(value)
		if !c.IsKnown() {
			h.writeValidationError(w, ValidationError{Field: "category", Message: "unknown category " + value})
			return
		}
		h.store.ToggleCategory(c)
	case "cities":
		h.store.ToggleCity(value)
	default:
		http.NotFound(w, r)
		return
	}

	h.writeFilters(w, http.StatusOK)
}

// HealthHandler handles GET /healthz. check may be nil.
func (h *Handler) HealthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				h.logger.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, h.logger)
				return
			}
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:         "ok",
			UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
			QueryRevision:  h.store.Revision(),
			DatasetVersion: h.feed.DatasetVersion(),
		}, h.logger)
	}
}

func (h *Handler) writeFilters(w http.ResponseWriter, status int) {
	snap := h.store.Snapshot()
	writeJSON(w, status, FiltersResponse{Revision: snap.Revision, Query: snap.Query}, h.logger)
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	h.logger.Debug("rejected request", "error", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()}, h.logger)
}

func newActiveFiltersResponse(snap querystore.Snapshot) ActiveFiltersResponse {
	return ActiveFiltersResponse{
		Revision:         snap.Revision,
		Filters:          filter.ActiveFiltersList(snap.Query),
		Count:            filter.ActiveFiltersCount(snap.Query),
		HasActiveFilters: filter.HasActiveFilters(snap.Query),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for dev
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// Response types
type FiltersResponse struct {
	Revision uint64       `json:"revision"`
	Query    models.Query `json:"query"`
}

type ActiveFiltersResponse struct {
	Revision         uint64                `json:"revision"`
	Filters          []models.ActiveFilter `json:"filters"`
	Count            int                   `json:"count"`
	HasActiveFilters bool                  `json:"has_active_filters"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	QueryRevision  uint64 `json:"query_revision"`
	DatasetVersion uint64 `json:"dataset_version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
