// Package analyze turns scan results into user-facing reports. The
// cascade mirrors the service's error philosophy: the heuristic report
// always exists, the model path only ever upgrades it.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/sightlinehq/sightline/internal/audit"
)

// Pipeline produces reports, with an optional model stage.
type Pipeline struct {
	client *anthropic.Client // nil when no API key is configured
	model  string
	logger *slog.Logger
}

// Config for the analysis pipeline.
type Config struct {
	APIKey string
	Model  string
}

// NewPipeline creates a pipeline. Without an API key every report is
// the locally computed heuristic.
func NewPipeline(cfg Config, logger *slog.Logger) *Pipeline {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Pipeline{
		client: newClaudeClient(cfg.APIKey),
		model:  model,
		logger: logger,
	}
}

// ModelEnabled reports whether the model stage is configured.
func (p *Pipeline) ModelEnabled() bool { return p.client != nil }

// ReportFor builds the report for a scan result: model path when
// configured, heuristic otherwise or on any model failure.
func (p *Pipeline) ReportFor(ctx context.Context, result *audit.Result) *audit.Report {
	heuristic := audit.BuildReport(result.Violations)
	if p.client == nil {
		return heuristic
	}

	prompt, err := json.Marshal(result)
	if err != nil {
		return heuristic
	}
	report, err := p.claudeReport(ctx, string(prompt))
	if err != nil {
		p.logger.Warn("model analysis failed, using heuristic report", "err", err)
		return heuristic
	}
	return clampReport(report)
}

// AnalyzePrompt handles a raw analysis prompt from the front-end. The
// prompt normally embeds the violation list as a JSON fragment; when the
// model path fails the fragment is recovered locally and the heuristic
// recomputed from it, so the caller always receives a report.
func (p *Pipeline) AnalyzePrompt(ctx context.Context, prompt string) (*audit.Report, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is empty")
	}

	if p.client != nil {
		if report, err := p.claudeReport(ctx, prompt); err == nil {
			return clampReport(report), nil
		} else {
			p.logger.Warn("model analysis failed, recomputing heuristic", "err", err)
		}
	}

	violations := extractViolations(prompt)
	return audit.BuildReport(violations), nil
}

// extractViolations recovers a violation list from a JSON fragment
// embedded in free text. A fragment that will not parse yields an empty
// list, never an error.
func extractViolations(prompt string) []audit.Violation {
	// Whole-payload forms first.
	if v, ok := decodeViolations([]byte(prompt)); ok {
		return v
	}
	// Bracketed array fragment.
	if start, end := strings.Index(prompt, "["), strings.LastIndex(prompt, "]"); start >= 0 && end > start {
		if v, ok := decodeViolations([]byte(prompt[start : end+1])); ok {
			return v
		}
	}
	// Object fragment, e.g. {"violations": [...]}.
	if start, end := strings.Index(prompt, "{"), strings.LastIndex(prompt, "}"); start >= 0 && end > start {
		if v, ok := decodeViolations([]byte(prompt[start : end+1])); ok {
			return v
		}
	}
	return nil
}

func decodeViolations(data []byte) ([]audit.Violation, bool) {
	var list []audit.Violation
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, true
	}
	var wrapped struct {
		Violations []audit.Violation `json:"violations"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Violations) > 0 {
		return wrapped.Violations, true
	}
	return nil, false
}

// parseJSONReport extracts a report from model output that may wrap the
// JSON object in extra prose or a code fence.
func parseJSONReport(content string) (*audit.Report, error) {
	content = strings.TrimSpace(content)

	var r audit.Report
	if err := json.Unmarshal([]byte(content), &r); err == nil && r.Summary != "" {
		return &r, nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &r); err == nil && r.Summary != "" {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("no report object in model output")
}

// clampReport forces model output back into the report contract: score
// in [0,100], severity from the known vocabulary, at most five
// recommendations.
func clampReport(r *audit.Report) *audit.Report {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	switch r.Severity {
	case audit.SeverityLow, audit.SeverityMedium, audit.SeverityHigh:
	default:
		r.Severity = audit.SeverityLow
	}
	if len(r.Recommendations) > 5 {
		r.Recommendations = r.Recommendations[:5]
	}
	return r
}
