package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportCleanPage(t *testing.T) {
	report := BuildReport(nil)

	assert.Equal(t, 100, report.Score)
	assert.Equal(t, SeverityLow, report.Severity)
	assert.Empty(t, report.Recommendations)
	assert.Contains(t, report.Summary, "No accessibility violations")
}

func TestBuildReportPenalties(t *testing.T) {
	tests := []struct {
		name       string
		violations []Violation
		wantScore  int
	}{
		{"one critical", []Violation{{Impact: ImpactCritical}}, 80},
		{"one serious", []Violation{{Impact: ImpactSerious}}, 85},
		{"one moderate", []Violation{{Impact: ImpactModerate}}, 90},
		{"one minor", []Violation{{Impact: ImpactMinor}}, 95},
		{"unknown impact costs minor", []Violation{{Impact: "bogus"}}, 95},
		{"mixed", []Violation{
			{Impact: ImpactCritical},
			{Impact: ImpactSerious},
			{Impact: ImpactMinor},
		}, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantScore, BuildReport(tt.violations).Score)
		})
	}
}

func TestBuildReportScoreFloor(t *testing.T) {
	var violations []Violation
	for i := 0; i < 10; i++ {
		violations = append(violations, Violation{Impact: ImpactCritical})
	}
	report := BuildReport(violations)
	assert.Equal(t, 0, report.Score, "score must clamp at zero")
}

func TestBuildReportSeverity(t *testing.T) {
	tests := []struct {
		name       string
		violations []Violation
		want       Severity
	}{
		{"critical wins", []Violation{{Impact: ImpactMinor}, {Impact: ImpactCritical}}, SeverityHigh},
		{"serious is medium", []Violation{{Impact: ImpactSerious}}, SeverityMedium},
		{"three moderates are medium", []Violation{
			{Impact: ImpactModerate}, {Impact: ImpactModerate}, {Impact: ImpactModerate},
		}, SeverityMedium},
		{"two moderates stay low", []Violation{
			{Impact: ImpactModerate}, {Impact: ImpactModerate},
		}, SeverityLow},
		{"minor only is low", []Violation{{Impact: ImpactMinor}}, SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildReport(tt.violations).Severity)
		})
	}
}

func TestBuildReportRecommendationCap(t *testing.T) {
	var violations []Violation
	for i := 0; i < 8; i++ {
		violations = append(violations, Violation{
			Impact: ImpactMinor,
			Help:   "Fix the thing",
		})
	}
	report := BuildReport(violations)
	assert.Len(t, report.Recommendations, 5)
}

func TestBuildReportRecommendationFormat(t *testing.T) {
	report := BuildReport([]Violation{{
		Impact: ImpactCritical,
		Help:   "Images must have alternate text",
		Nodes: []NodeResult{
			{Target: "img:nth-of-type(1)", FailureSummary: "Fix: add an alt attribute."},
			{Target: "img:nth-of-type(2)"},
		},
	}})

	require.Len(t, report.Recommendations, 1)
	rec := report.Recommendations[0]
	assert.Contains(t, rec, "[critical]")
	assert.Contains(t, rec, "Images must have alternate text")
	assert.Contains(t, rec, "2 elements affected")
	assert.Contains(t, rec, "Fix: add an alt attribute.")
}

func TestRuleIDs(t *testing.T) {
	ids := RuleIDs([]Violation{
		{RuleID: "image-alt"},
		{RuleID: "label"},
		{RuleID: "image-alt"},
		{RuleID: ""},
		{RuleID: "link-name"},
	})
	assert.Equal(t, []string{"image-alt", "label", "link-name"}, ids)

	assert.Empty(t, RuleIDs(nil))
}

func TestBuildReportSingularElement(t *testing.T) {
	report := BuildReport([]Violation{{
		Impact: ImpactSerious,
		Help:   "Documents must have a title",
	}})

	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "1 element affected",
		"a violation with no recorded nodes still counts one element")
}
