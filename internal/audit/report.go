package audit

import (
	"fmt"
	"strings"
)

// Severity is the coarse label derived from a violation list.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Report is the heuristic summary shown to the user. It is derived
// entirely from the violation list and carries no model output unless
// the analyze pipeline replaced it.
type Report struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Severity        Severity `json:"severity"`
	Score           int      `json:"score"`
}

// Score penalties per impact class. Anything unrecognised costs the
// same as a minor violation.
const (
	penaltyCritical = 20
	penaltySerious  = 15
	penaltyModerate = 10
	penaltyMinor    = 5

	maxRecommendations = 5
)

func penalty(i Impact) int {
	switch i {
	case ImpactCritical:
		return penaltyCritical
	case ImpactSerious:
		return penaltySerious
	case ImpactModerate:
		return penaltyModerate
	default:
		return penaltyMinor
	}
}

// BuildReport reduces a violation list to a score, a severity label and
// up to five recommendation strings. It is the single source of truth
// for the heuristic: the analyze pipeline falls back to it whenever the
// model path fails, and the scan handler uses it directly.
func BuildReport(violations []Violation) *Report {
	score := 100
	for _, v := range violations {
		score -= penalty(v.Impact)
	}
	if score < 0 {
		score = 0
	}

	return &Report{
		Summary:         summarize(violations, score),
		Recommendations: recommend(violations),
		Severity:        severityOf(violations),
		Score:           score,
	}
}

// severityOf: high if anything critical, medium if anything serious or
// more than two moderate violations, low otherwise.
func severityOf(violations []Violation) Severity {
	moderate := 0
	serious := false
	for _, v := range violations {
		switch v.Impact {
		case ImpactCritical:
			return SeverityHigh
		case ImpactSerious:
			serious = true
		case ImpactModerate:
			moderate++
		}
	}
	if serious || moderate > 2 {
		return SeverityMedium
	}
	return SeverityLow
}

// recommend maps each violation to one descriptive string: impact tag,
// help text, affected element count and the first failure summary.
func recommend(violations []Violation) []string {
	recs := make([]string, 0, min(len(violations), maxRecommendations))
	for _, v := range violations {
		if len(recs) >= maxRecommendations {
			break
		}
		n := v.ElementCount()
		noun := "elements"
		if n == 1 {
			noun = "element"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s — %d %s affected.", v.Impact, helpOrDescription(&v), n, noun)
		if s := firstFailureSummary(&v); s != "" {
			b.WriteString(" ")
			b.WriteString(s)
		}
		recs = append(recs, b.String())
	}
	return recs
}

func helpOrDescription(v *Violation) string {
	if v.Help != "" {
		return v.Help
	}
	return v.Description
}

func firstFailureSummary(v *Violation) string {
	for _, n := range v.Nodes {
		if n.FailureSummary != "" {
			return n.FailureSummary
		}
	}
	return ""
}

func summarize(violations []Violation, score int) string {
	if len(violations) == 0 {
		return "No accessibility violations detected. Score 100/100."
	}
	elements := 0
	for i := range violations {
		elements += violations[i].ElementCount()
	}
	noun := "rules"
	if len(violations) == 1 {
		noun = "rule"
	}
	return fmt.Sprintf("%d accessibility %s failed across %d affected elements. Score %d/100.",
		len(violations), noun, elements, score)
}
