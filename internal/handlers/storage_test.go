package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sightlinehq/sightline/internal/ratelimit"
)

// Every history endpoint answers 503 when no database is configured.
func TestHistoryEndpointsWithoutStorage(t *testing.T) {
	logger := testLogger()
	limiter := ratelimit.New()
	scans := NewScansHandler(nil, limiter, logger)
	sites := NewSitesHandler(nil, limiter, logger)
	stats := NewStatsHandler(nil, limiter, logger)
	issue := NewIssueHandler(nil, nil, limiter, logger)

	tests := []struct {
		name string
		call func(w *httptest.ResponseRecorder)
	}{
		{"list scans", func(w *httptest.ResponseRecorder) {
			scans.List(w, httptest.NewRequest("GET", "/api/scans", nil))
		}},
		{"get scan", func(w *httptest.ResponseRecorder) {
			scans.Get(w, httptest.NewRequest("GET", "/api/scans/x", nil))
		}},
		{"list sites", func(w *httptest.ResponseRecorder) {
			sites.List(w, httptest.NewRequest("GET", "/api/sites", nil))
		}},
		{"stats", func(w *httptest.ResponseRecorder) {
			stats.Get(w, httptest.NewRequest("GET", "/api/stats", nil))
		}},
		{"file issue", func(w *httptest.ResponseRecorder) {
			issue.Create(w, httptest.NewRequest("POST", "/api/scans/x/issue", nil))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.call(w)
			assert.Equal(t, 503, w.Code)
			assert.Contains(t, w.Body.String(), "database")
		})
	}
}
