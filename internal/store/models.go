package store

import (
	"encoding/json"
	"time"
)

// Site is a target registered for monitored re-scans.
type Site struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Label         string     `json:"label,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
}

// Scan is one recorded scan outcome. Report holds the serialized
// audit.Report as produced at scan time.
type Scan struct {
	ID             string          `json:"id"`
	SiteID         *int64          `json:"site_id,omitempty"`
	URL            string          `json:"url"`
	Engine         string          `json:"engine,omitempty"`
	Score          int             `json:"score"`
	Severity       string          `json:"severity"`
	ViolationCount int             `json:"violation_count"`
	PassCount      int             `json:"pass_count"`
	RuleIDs        []string        `json:"rule_ids,omitempty"`
	Report         json.RawMessage `json:"report,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Stats aggregates scan history for the dashboard.
type Stats struct {
	TotalScans     int64       `json:"total_scans"`
	AverageScore   float64     `json:"average_score"`
	HighSeverity   int64       `json:"high_severity_scans"`
	SitesMonitored int64       `json:"sites_monitored"`
	WorstRules     []RuleCount `json:"worst_rules"`
}

// RuleCount is one entry in the worst-offending-rules ranking.
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int64  `json:"count"`
}

// HistoryPoint is one entry in a site's score trend.
type HistoryPoint struct {
	ScanID    string    `json:"scan_id"`
	Score     int       `json:"score"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}
