// Package scanner acquires a target page and runs accessibility rules
// over it: axe-core inside a headless browser when one is available, the
// native engine over a plain HTTP fetch otherwise.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/netguard"
)

// Engine selection modes.
const (
	EngineAuto    = "auto"    // browser first, static on failure
	EngineBrowser = "browser" // browser only
	EngineStatic  = "static"  // plain fetch + native rules only
)

// Config controls page acquisition.
type Config struct {
	Engine    string
	Settle    time.Duration
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the standard scan configuration.
func DefaultConfig() Config {
	return Config{
		Engine:    EngineAuto,
		Settle:    DefaultSettle,
		Timeout:   30 * time.Second,
		UserAgent: defaultUserAgent,
	}
}

// ProgressFunc receives stage transitions during a scan. May be nil.
type ProgressFunc func(stage, detail string)

// Scanner runs one scan per call. It holds no mutable state; a single
// instance is shared by the HTTP handlers and the monitor loop.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Scanner, filling zero config fields with defaults.
func New(cfg Config, logger *slog.Logger) *Scanner {
	def := DefaultConfig()
	if cfg.Engine == "" {
		cfg.Engine = def.Engine
	}
	if cfg.Settle <= 0 {
		cfg.Settle = def.Settle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Scanner{cfg: cfg, logger: logger}
}

// ErrBlockedTarget wraps target validation failures so handlers can map
// them to a 400 rather than a 500.
type ErrBlockedTarget struct{ Err error }

func (e *ErrBlockedTarget) Error() string { return e.Err.Error() }
func (e *ErrBlockedTarget) Unwrap() error { return e.Err }

// Scan validates the target and evaluates the configured engine against
// it. In auto mode a browser failure falls back to the static path and
// the caller still gets a result.
func (s *Scanner) Scan(ctx context.Context, rawURL string, progress ProgressFunc) (*audit.Result, error) {
	notify := func(stage, detail string) {
		if progress != nil {
			progress(stage, detail)
		}
	}

	notify("validate", rawURL)
	target, err := netguard.CheckTarget(ctx, rawURL)
	if err != nil {
		return nil, &ErrBlockedTarget{Err: err}
	}
	url := target.String()

	switch s.cfg.Engine {
	case EngineBrowser:
		notify("fetch", "rendering page in headless browser")
		return s.scanWithBrowser(ctx, url)
	case EngineStatic:
		notify("fetch", "fetching page")
		return s.scanStatic(ctx, url)
	case EngineAuto:
		notify("fetch", "rendering page in headless browser")
		result, err := s.scanWithBrowser(ctx, url)
		if err == nil {
			return result, nil
		}
		s.logger.Warn("browser scan failed, falling back to static engine", "url", url, "err", err)
		notify("fetch", "browser unavailable, fetching page directly")
		return s.scanStatic(ctx, url)
	default:
		return nil, fmt.Errorf("unknown scan engine %q", s.cfg.Engine)
	}
}
