package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/store"
)

// StatsHandler serves aggregate counters for the dashboard header.
type StatsHandler struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewStatsHandler(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{store: st, limiter: limiter, logger: logger}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}

	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		h.logger.Error("stats failed", "err", err)
		jsonError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	jsonOK(w, stats)
}
