// Package monitor re-scans registered sites on a fixed interval and
// records their score history.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sightlinehq/sightline/internal/analyze"
	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/scanner"
	"github.com/sightlinehq/sightline/internal/store"
	"github.com/sightlinehq/sightline/internal/webhook"
	"github.com/sightlinehq/sightline/internal/ws"
)

// Loop drives the background re-scan cycle.
type Loop struct {
	store    *store.Store
	scanner  *scanner.Scanner
	pipeline *analyze.Pipeline
	ws       *ws.Manager
	hook     *webhook.Client // nil when WEBHOOK_URL not set
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
	cycleNum atomic.Int64
}

// NewLoop creates a monitor loop.
func NewLoop(st *store.Store, sc *scanner.Scanner, pipeline *analyze.Pipeline,
	wsManager *ws.Manager, hook *webhook.Client, interval time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		store:    st,
		scanner:  sc,
		pipeline: pipeline,
		ws:       wsManager,
		hook:     hook,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	// Wait for server to be ready
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
	}

	for {
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.interval):
		}
	}
}

// RunOnce executes a single cycle. Used for manual triggers.
func (l *Loop) RunOnce(ctx context.Context) *CycleResult {
	return l.runCycle(ctx)
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool { return l.running.Load() }

// CycleResult summarises one full cycle.
type CycleResult struct {
	Cycle      int64 `json:"cycle"`
	Scanned    int   `json:"scanned"`
	Failed     int   `json:"failed"`
	Regressed  int   `json:"regressed"`
	DurationMS int64 `json:"duration_ms"`
}

func (l *Loop) runCycle(ctx context.Context) *CycleResult {
	started := time.Now()
	result := &CycleResult{Cycle: l.cycleNum.Add(1)}

	sites, err := l.store.ListSites(ctx)
	if err != nil {
		l.logger.Error("monitor cycle: list sites failed", "err", err)
		return result
	}
	if len(sites) == 0 {
		return result
	}

	l.logger.Info("monitor cycle starting", "cycle", result.Cycle, "sites", len(sites))
	l.broadcast(map[string]any{"type": "monitor", "status": "running", "cycle": result.Cycle, "sites": len(sites)})

	for _, site := range sites {
		select {
		case <-ctx.Done():
			return result
		default:
		}
		if l.scanSite(ctx, site, result) {
			result.Scanned++
		} else {
			result.Failed++
		}
	}

	result.DurationMS = time.Since(started).Milliseconds()
	l.logger.Info("monitor cycle finished", "cycle", result.Cycle,
		"scanned", result.Scanned, "failed", result.Failed, "regressed", result.Regressed)
	l.broadcast(map[string]any{"type": "monitor", "status": "done", "cycle": result.Cycle,
		"scanned": result.Scanned, "failed": result.Failed, "regressed": result.Regressed})
	return result
}

// scanSite scans one site and records the result. Returns false when
// the scan itself failed; persistence errors only log.
func (l *Loop) scanSite(ctx context.Context, site store.Site, cycle *CycleResult) bool {
	res, err := l.scanner.Scan(ctx, site.URL, nil)
	if err != nil {
		l.logger.Warn("monitor scan failed", "site_id", site.ID, "url", site.URL, "err", err)
		return false
	}
	report := l.pipeline.ReportFor(ctx, res)

	prev := l.lastScore(ctx, site.ID)

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return false
	}
	scan := &store.Scan{
		ID:             uuid.NewString(),
		SiteID:         &site.ID,
		URL:            res.URL,
		Engine:         res.Engine,
		Score:          report.Score,
		Severity:       string(report.Severity),
		ViolationCount: len(res.Violations),
		PassCount:      len(res.Passes),
		RuleIDs:        audit.RuleIDs(res.Violations),
		Report:         reportJSON,
	}
	if err := l.store.InsertScan(ctx, scan); err != nil {
		l.logger.Warn("monitor persist failed", "site_id", site.ID, "err", err)
	}
	if err := l.store.TouchSiteScanned(ctx, site.ID); err != nil {
		l.logger.Warn("touch site failed", "site_id", site.ID, "err", err)
	}

	l.broadcast(map[string]any{
		"type":     "scan",
		"status":   "done",
		"scan_id":  scan.ID,
		"site_id":  site.ID,
		"url":      scan.URL,
		"score":    scan.Score,
		"severity": scan.Severity,
	})

	if prev != nil && report.Score < *prev {
		cycle.Regressed++
		l.notify(ctx, scan, "score.regressed", prev)
	} else {
		l.notify(ctx, scan, "scan.completed", prev)
	}
	return true
}

// lastScore returns the most recent recorded score for a site, or nil
// when it has never been scanned.
func (l *Loop) lastScore(ctx context.Context, siteID int64) *int {
	points, err := l.store.SiteHistory(ctx, siteID, 1)
	if err != nil || len(points) == 0 {
		return nil
	}
	return &points[0].Score
}

func (l *Loop) notify(ctx context.Context, scan *store.Scan, event string, prev *int) {
	if l.hook == nil {
		return
	}
	err := l.hook.Notify(ctx, &webhook.Notification{
		Event:      event,
		ScanID:     scan.ID,
		URL:        scan.URL,
		Score:      scan.Score,
		PrevScore:  prev,
		Severity:   scan.Severity,
		Violations: scan.ViolationCount,
	})
	if err != nil {
		l.logger.Warn("webhook notify failed", "event", event, "err", err)
	}
}

func (l *Loop) broadcast(data map[string]any) {
	if l.ws != nil {
		l.ws.Broadcast(data)
	}
}
