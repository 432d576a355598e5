package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightlinehq/sightline/internal/audit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewFillsDefaults(t *testing.T) {
	s := New(Config{}, testLogger())
	assert.Equal(t, EngineAuto, s.cfg.Engine)
	assert.Equal(t, DefaultSettle, s.cfg.Settle)
	assert.Equal(t, 30*time.Second, s.cfg.Timeout)
	assert.NotEmpty(t, s.cfg.UserAgent)
}

func TestScanRejectsBlockedTarget(t *testing.T) {
	s := New(Config{Engine: EngineStatic}, testLogger())

	var stages []string
	_, err := s.Scan(context.Background(), "http://127.0.0.1/admin", func(stage, _ string) {
		stages = append(stages, stage)
	})

	require.Error(t, err)
	var blocked *ErrBlockedTarget
	assert.ErrorAs(t, err, &blocked)
	assert.Equal(t, []string{"validate"}, stages, "no fetch stage after a blocked target")
}

func TestScanRejectsBadScheme(t *testing.T) {
	s := New(Config{Engine: EngineStatic}, testLogger())
	_, err := s.Scan(context.Background(), "file:///etc/passwd", nil)

	var blocked *ErrBlockedTarget
	assert.ErrorAs(t, err, &blocked)
}

func TestScanUnknownEngine(t *testing.T) {
	s := New(Config{Engine: "quantum"}, testLogger())
	_, err := s.Scan(context.Background(), "http://93.184.216.34/", nil)

	require.Error(t, err)
	var blocked *ErrBlockedTarget
	assert.False(t, errors.As(err, &blocked), "unknown engine is a server-side error, not a blocked target")
	assert.Contains(t, err.Error(), "unknown scan engine")
}

func TestConvertAxe(t *testing.T) {
	results := &axeResults{
		Violations: []axeRule{{
			ID:      "color-contrast",
			Impact:  "Serious",
			Help:    "Elements must meet minimum color contrast ratio thresholds",
			HelpURL: "https://dequeuniversity.com/rules/axe/4.10/color-contrast",
			Nodes: []axeNode{{
				HTML:           `<p class="dim">low contrast</p>`,
				Target:         []string{"p.dim"},
				FailureSummary: "Fix: increase the contrast ratio.",
			}},
		}},
		Passes: []axeRule{{
			ID:    "image-alt",
			Nodes: []axeNode{{}, {}},
		}},
	}

	out := convertAxe(results, "https://example.com/")

	assert.Equal(t, "axe", out.Engine)
	assert.Equal(t, "https://example.com/", out.URL)
	require.Len(t, out.Violations, 1)
	v := out.Violations[0]
	assert.Equal(t, "color-contrast", v.RuleID)
	assert.Equal(t, audit.ImpactSerious, v.Impact)
	require.Len(t, v.Nodes, 1)
	assert.Equal(t, "p.dim", v.Nodes[0].Target)

	require.Len(t, out.Passes, 1)
	assert.Equal(t, 2, out.Passes[0].Elements)
}

func TestNormalizeImpact(t *testing.T) {
	tests := []struct {
		in   string
		want audit.Impact
	}{
		{"critical", audit.ImpactCritical},
		{"Serious", audit.ImpactSerious},
		{"MODERATE", audit.ImpactModerate},
		{"minor", audit.ImpactMinor},
		{"", audit.ImpactMinor},
		{"weird", audit.ImpactMinor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeImpact(tt.in), tt.in)
	}
}
