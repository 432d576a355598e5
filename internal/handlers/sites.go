package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sightlinehq/sightline/internal/netguard"
	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/store"
)

// SitesHandler manages the set of monitored sites.
type SitesHandler struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewSitesHandler(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *SitesHandler {
	return &SitesHandler{store: st, limiter: limiter, logger: logger}
}

type createSiteRequest struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Create handles POST /api/sites. Registering the same URL twice
// updates the label instead of failing.
func (h *SitesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	target, err := netguard.CheckTarget(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		jsonError(w, "invalid site url: "+err.Error(), http.StatusBadRequest)
		return
	}

	site := &store.Site{URL: target.String(), Label: req.Label}
	if err := h.store.CreateSite(r.Context(), site); err != nil {
		h.logger.Error("create site failed", "url", site.URL, "err", err)
		jsonError(w, "failed to register site", http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusCreated, site)
}

// List handles GET /api/sites.
func (h *SitesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	sites, err := h.store.ListSites(r.Context())
	if err != nil {
		h.logger.Error("list sites failed", "err", err)
		jsonError(w, "failed to list sites", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"sites": sites})
}

// Delete handles DELETE /api/sites/{id}. Scan history for the site is
// removed with it.
func (h *SitesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid site id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteSite(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "site not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete site failed", "id", id, "err", err)
		jsonError(w, "failed to delete site", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"deleted": id})
}

// History handles GET /api/sites/{id}/history?limit=N.
func (h *SitesHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid site id", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetSite(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		jsonError(w, "site not found", http.StatusNotFound)
		return
	} else if err != nil {
		h.logger.Error("get site failed", "id", id, "err", err)
		jsonError(w, "failed to load site", http.StatusInternalServerError)
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			limit = n
		}
	}

	points, err := h.store.SiteHistory(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("site history failed", "id", id, "err", err)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"site_id": id, "history": points})
}
