package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sightlinehq/sightline/internal/analyze"
	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/scanner"
	"github.com/sightlinehq/sightline/internal/sse"
	"github.com/sightlinehq/sightline/internal/store"
	"github.com/sightlinehq/sightline/internal/ws"
)

// ScanHandler serves the synchronous scan endpoint.
type ScanHandler struct {
	scanner  *scanner.Scanner
	pipeline *analyze.Pipeline
	store    *store.Store // nil when storage is disabled
	hub      *sse.Hub
	ws       *ws.Manager
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// NewScanHandler wires the scan endpoint.
func NewScanHandler(sc *scanner.Scanner, pipeline *analyze.Pipeline, st *store.Store,
	hub *sse.Hub, wsm *ws.Manager, limiter *ratelimit.Limiter, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		scanner:  sc,
		pipeline: pipeline,
		store:    st,
		hub:      hub,
		ws:       wsm,
		limiter:  limiter,
		logger:   logger,
	}
}

// scanResponse is the /scan payload. Violations and passes are the
// contract; the rest is context the front-end renders around them.
type scanResponse struct {
	ScanID     string            `json:"scan_id"`
	URL        string            `json:"url"`
	Engine     string            `json:"engine"`
	Violations []audit.Violation `json:"violations"`
	Passes     []audit.Pass      `json:"passes"`
	Report     *audit.Report     `json:"report"`
}

// Scan handles GET /scan?url=<URL>[&scan_id=<uuid>]. A client that
// wants live progress generates its own scan_id, opens the SSE stream
// first and passes the id here.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "scan") {
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}

	scanID := r.URL.Query().Get("scan_id")
	if _, err := uuid.Parse(scanID); err != nil {
		scanID = uuid.NewString()
	}

	h.broadcast(map[string]any{"type": "scan", "status": "started", "scan_id": scanID, "url": rawURL})

	result, err := h.scanner.Scan(r.Context(), rawURL, h.progressFunc(scanID))
	if err != nil {
		h.broadcast(map[string]any{"type": "scan", "status": "failed", "scan_id": scanID, "url": rawURL})
		var blocked *scanner.ErrBlockedTarget
		if errors.As(err, &blocked) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("scan failed", "url", rawURL, "err", err)
		jsonError(w, "scan failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	report := h.pipeline.ReportFor(r.Context(), result)
	h.persist(r, scanID, result, report)
	h.publishDone(scanID, result, report)

	jsonOK(w, &scanResponse{
		ScanID:     scanID,
		URL:        result.URL,
		Engine:     result.Engine,
		Violations: result.Violations,
		Passes:     result.Passes,
		Report:     report,
	})
}

func (h *ScanHandler) progressFunc(scanID string) scanner.ProgressFunc {
	return func(stage, detail string) {
		data, err := json.Marshal(map[string]string{"stage": stage, "detail": detail})
		if err != nil {
			return
		}
		h.hub.Publish(scanID, sse.Event{Type: "progress", Data: data})
	}
}

func (h *ScanHandler) publishDone(scanID string, result *audit.Result, report *audit.Report) {
	summary := map[string]any{
		"type":       "scan",
		"status":     "done",
		"scan_id":    scanID,
		"url":        result.URL,
		"engine":     result.Engine,
		"violations": len(result.Violations),
		"score":      report.Score,
		"severity":   report.Severity,
	}
	h.broadcast(summary)
	if data, err := json.Marshal(summary); err == nil {
		h.hub.Publish(scanID, sse.Event{Type: "scan", Data: data})
	}
}

func (h *ScanHandler) broadcast(data map[string]any) {
	if h.ws != nil {
		h.ws.Broadcast(data)
	}
}

func (h *ScanHandler) persist(r *http.Request, scanID string, result *audit.Result, report *audit.Report) {
	if h.store == nil {
		return
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return
	}
	scan := &store.Scan{
		ID:             scanID,
		URL:            result.URL,
		Engine:         result.Engine,
		Score:          report.Score,
		Severity:       string(report.Severity),
		ViolationCount: len(result.Violations),
		PassCount:      len(result.Passes),
		RuleIDs:        audit.RuleIDs(result.Violations),
		Report:         reportJSON,
	}
	if err := h.store.InsertScan(r.Context(), scan); err != nil {
		h.logger.Warn("persist scan failed", "scan_id", scanID, "err", err)
	}
}
