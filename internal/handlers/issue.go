package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/reporter"
	"github.com/sightlinehq/sightline/internal/store"
)

// IssueHandler files a stored scan as a GitHub issue.
type IssueHandler struct {
	store    *store.Store
	reporter *reporter.Reporter // nil when issue filing is not configured
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

func NewIssueHandler(st *store.Store, rp *reporter.Reporter, limiter *ratelimit.Limiter, logger *slog.Logger) *IssueHandler {
	return &IssueHandler{store: st, reporter: rp, limiter: limiter, logger: logger}
}

// Create handles POST /api/scans/{id}/issue.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "api") {
		return
	}
	if h.store == nil {
		storageDisabled(w)
		return
	}
	if h.reporter == nil {
		jsonError(w, "issue filing requires GITHUB_TOKEN and GITHUB_ISSUE_REPO", http.StatusServiceUnavailable)
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

	issueURL, err := h.reporter.CreateIssue(r.Context(), scan)
	if err != nil {
		h.logger.Error("file issue failed", "scan_id", scan.ID, "err", err)
		jsonError(w, "failed to file issue", http.StatusInternalServerError)
		return
	}

	jsonStatus(w, http.StatusCreated, map[string]string{"issue_url": issueURL, "scan_id": scan.ID})
}
