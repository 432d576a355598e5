package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsJSONShape(t *testing.T) {
	stats := Stats{
		TotalScans:     12,
		AverageScore:   81.5,
		HighSeverity:   2,
		SitesMonitored: 3,
		WorstRules: []RuleCount{
			{RuleID: "image-alt", Count: 7},
			{RuleID: "label", Count: 4},
		},
	}

	data, err := json.Marshal(&stats)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"total_scans": 12,
		"average_score": 81.5,
		"high_severity_scans": 2,
		"sites_monitored": 3,
		"worst_rules": [
			{"rule_id": "image-alt", "count": 7},
			{"rule_id": "label", "count": 4}
		]
	}`, string(data))
}

func TestStatsWorstRulesNeverNull(t *testing.T) {
	// GetStats initialises WorstRules so an empty history serialises
	// as [] rather than null.
	data, err := json.Marshal(&Stats{WorstRules: []RuleCount{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"worst_rules":[]`)
}
