package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/store"
)

// ScansHandler serves scan history. All routes 503 when no database is
// configured.
type ScansHandler struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewScansHandler(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *ScansHandler {
	return &ScansHandler{store: st, limiter: limiter, logger: logger}
}

// List handles GET /api/scans?limit=N.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	scans, err := h.store.RecentScans(r.Context(), limit)
	if err != nil {
		h.logger.Error("list scans failed", "err", err)
		jsonError(w, "failed to list scans", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"scans": scans})
}

// Get handles GET /api/scans/{id}.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	scan, err := h.store.GetScan(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "scan not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get scan failed", "err", err)
		jsonError(w, "failed to load scan", http.StatusInternalServerError)
		return
	}
	jsonOK(w, scan)
}
