package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightlinehq/sightline/internal/analyze"
	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/ratelimit"
)

func testAnalyzeHandler() *AnalyzeHandler {
	logger := testLogger()
	return NewAnalyzeHandler(analyze.NewPipeline(analyze.Config{}, logger), ratelimit.New(), logger)
}

func TestAnalyzeRejectsBadBody(t *testing.T) {
	h := testAnalyzeHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/analyze", strings.NewReader("not json"))

	h.Analyze(w, r)

	assert.Equal(t, 400, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request body", resp["error"])
	assert.NotEmpty(t, resp["details"])
}

func TestAnalyzeRejectsEmptyPrompt(t *testing.T) {
	h := testAnalyzeHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"prompt":"  "}`))

	h.Analyze(w, r)

	assert.Equal(t, 400, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "prompt is required", resp["error"])
}

func TestAnalyzeReturnsReportString(t *testing.T) {
	h := testAnalyzeHandler()

	body := map[string]string{
		"prompt": `Review this: {"violations":[{"id":"image-alt","impact":"critical","help":"Images must have alternate text"}]}`,
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/analyze", strings.NewReader(string(raw)))
	h.Analyze(w, r)

	require.Equal(t, 200, w.Code)

	// The report arrives as a JSON string that itself parses.
	var resp struct {
		Report string `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Report)

	var report audit.Report
	require.NoError(t, json.Unmarshal([]byte(resp.Report), &report))
	assert.Equal(t, 80, report.Score)
	assert.Equal(t, audit.SeverityHigh, report.Severity)
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "alternate text")
}

func TestAnalyzeWithoutViolationsStillReports(t *testing.T) {
	h := testAnalyzeHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"prompt":"is my site ok?"}`))

	h.Analyze(w, r)

	require.Equal(t, 200, w.Code)
	var resp struct {
		Report string `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var report audit.Report
	require.NoError(t, json.Unmarshal([]byte(resp.Report), &report))
	assert.Equal(t, 100, report.Score)
}
