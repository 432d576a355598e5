// Package store persists scan history in PostgreSQL. The whole package
// is optional: when no DATABASE_URL is configured the service runs with
// a nil *Store and history endpoints report storage as disabled.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a queried entity does not exist.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool against dsn and applies migrations.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	s.logger.Info("database migrated")
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ---------------------------------------------------------------------------
// Scans
// ---------------------------------------------------------------------------

// InsertScan records a completed scan.
func (s *Store) InsertScan(ctx context.Context, scan *Scan) error {
	ruleIDs := scan.RuleIDs
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (id, site_id, url, engine, score, severity, violation_count, pass_count, rule_ids, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		scan.ID, scan.SiteID, scan.URL, scan.Engine, scan.Score, scan.Severity,
		scan.ViolationCount, scan.PassCount, ruleIDs, scan.Report)
	return err
}

// GetScan fetches one scan by its UUID.
func (s *Store) GetScan(ctx context.Context, id string) (*Scan, error) {
	var scan Scan
	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, url, engine, score, severity, violation_count, pass_count, rule_ids, report, created_at
		 FROM scans WHERE id = $1`, id).
		Scan(&scan.ID, &scan.SiteID, &scan.URL, &scan.Engine, &scan.Score, &scan.Severity,
			&scan.ViolationCount, &scan.PassCount, &scan.RuleIDs, &scan.Report, &scan.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// RecentScans lists the newest scans first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]Scan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, url, engine, score, severity, violation_count, pass_count, rule_ids, created_at
		 FROM scans ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var scan Scan
		if err := rows.Scan(&scan.ID, &scan.SiteID, &scan.URL, &scan.Engine, &scan.Score,
			&scan.Severity, &scan.ViolationCount, &scan.PassCount, &scan.RuleIDs, &scan.CreatedAt); err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// ---------------------------------------------------------------------------
// Sites
// ---------------------------------------------------------------------------

// CreateSite registers a URL for monitored re-scans.
func (s *Store) CreateSite(ctx context.Context, site *Site) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO sites (url, label) VALUES ($1, $2)
		 ON CONFLICT (url) DO UPDATE SET label = EXCLUDED.label
		 RETURNING id, created_at`,
		site.URL, site.Label).Scan(&site.ID, &site.CreatedAt)
}

// GetSite fetches one site.
func (s *Store) GetSite(ctx context.Context, id int64) (*Site, error) {
	var site Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, label, created_at, last_scanned_at FROM sites WHERE id = $1`, id).
		Scan(&site.ID, &site.URL, &site.Label, &site.CreatedAt, &site.LastScannedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// ListSites returns all monitored sites, oldest registration first.
func (s *Store) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, label, created_at, last_scanned_at FROM sites ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var site Site
		if err := rows.Scan(&site.ID, &site.URL, &site.Label, &site.CreatedAt, &site.LastScannedAt); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// DeleteSite removes a site and, via cascade, its scan history.
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchSiteScanned stamps the last scan time.
func (s *Store) TouchSiteScanned(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE sites SET last_scanned_at = NOW() WHERE id = $1`, id)
	return err
}

// SiteHistory returns the score trend for one site, newest first.
func (s *Store) SiteHistory(ctx context.Context, siteID int64, limit int) ([]HistoryPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, score, severity, created_at FROM scans
		 WHERE site_id = $1 ORDER BY created_at DESC LIMIT $2`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.ScanID, &p.Score, &p.Severity, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// GetStats aggregates scan history for the dashboard, including the
// rules that fail most often across all recorded scans.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := Stats{WorstRules: []RuleCount{}}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(score), 0),
		        COUNT(*) FILTER (WHERE severity = 'high')
		 FROM scans`).
		Scan(&stats.TotalScans, &stats.AverageScore, &stats.HighSeverity)
	if err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sites`).Scan(&stats.SitesMonitored); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rule_id, COUNT(*) AS failures
		 FROM scans, unnest(rule_ids) AS rule_id
		 GROUP BY rule_id ORDER BY failures DESC, rule_id LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.RuleID, &rc.Count); err != nil {
			return nil, err
		}
		stats.WorstRules = append(stats.WorstRules, rc)
	}
	return &stats, rows.Err()
}
