package analyze

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightlinehq/sightline/internal/audit"
)

func testPipeline() *Pipeline {
	return NewPipeline(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyzePromptEmpty(t *testing.T) {
	_, err := testPipeline().AnalyzePrompt(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAnalyzePromptHeuristicFallback(t *testing.T) {
	prompt := `Please review this scan: {"violations": [
		{"id": "image-alt", "impact": "critical", "help": "Images must have alternate text"},
		{"id": "label", "impact": "critical", "help": "Form elements must have labels"}
	]}`

	report, err := testPipeline().AnalyzePrompt(context.Background(), prompt)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Score)
	assert.Equal(t, audit.SeverityHigh, report.Severity)
	assert.Len(t, report.Recommendations, 2)
}

func TestAnalyzePromptWithoutViolations(t *testing.T) {
	report, err := testPipeline().AnalyzePrompt(context.Background(), "how accessible is my site?")
	require.NoError(t, err)

	assert.Equal(t, 100, report.Score)
	assert.Equal(t, audit.SeverityLow, report.Severity)
}

func TestReportForUsesHeuristicWithoutModel(t *testing.T) {
	p := testPipeline()
	assert.False(t, p.ModelEnabled())

	result := &audit.Result{
		Violations: []audit.Violation{{RuleID: "image-alt", Impact: audit.ImpactCritical}},
	}
	report := p.ReportFor(context.Background(), result)
	assert.Equal(t, 80, report.Score)
	assert.Equal(t, audit.SeverityHigh, report.Severity)
}

func TestExtractViolations(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   int
	}{
		{"bare array", `[{"id":"x","impact":"minor"}]`, 1},
		{"wrapped object", `{"violations":[{"id":"x","impact":"minor"},{"id":"y","impact":"serious"}]}`, 2},
		{"array inside prose", `analyze these: [{"id":"x","impact":"minor"}] thanks`, 1},
		{"object inside prose", `scan output {"violations":[{"id":"x","impact":"minor"}]} end`, 1},
		{"no json at all", `just words`, 0},
		{"broken json", `[{"id": }`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, extractViolations(tt.prompt), tt.want)
		})
	}
}

func TestParseJSONReport(t *testing.T) {
	direct := `{"summary":"ok","recommendations":[],"severity":"low","score":95}`
	r, err := parseJSONReport(direct)
	require.NoError(t, err)
	assert.Equal(t, 95, r.Score)

	fenced := "Here is the report:\n```json\n" + direct + "\n```"
	r, err = parseJSONReport(fenced)
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Summary)

	_, err = parseJSONReport("no json here")
	assert.Error(t, err)
}

func TestClampReport(t *testing.T) {
	r := clampReport(&audit.Report{
		Summary:  "s",
		Score:    150,
		Severity: "catastrophic",
		Recommendations: []string{
			"a", "b", "c", "d", "e", "f", "g",
		},
	})
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, audit.SeverityLow, r.Severity)
	assert.Len(t, r.Recommendations, 5)

	r = clampReport(&audit.Report{Summary: "s", Score: -10, Severity: audit.SeverityHigh})
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, audit.SeverityHigh, r.Severity)
}
