// Package audit implements accessibility rule evaluation and the
// heuristic reduction of rule violations into a scored report.
package audit

// Impact is the ordinal severity tag attached to each violation
// (minor < moderate < serious < critical).
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSerious  Impact = "serious"
	ImpactCritical Impact = "critical"
)

// rank orders impacts for comparison. Unknown impacts rank lowest.
func (i Impact) rank() int {
	switch i {
	case ImpactCritical:
		return 4
	case ImpactSerious:
		return 3
	case ImpactModerate:
		return 2
	case ImpactMinor:
		return 1
	}
	return 0
}

// AtLeast reports whether i is as severe as other.
func (i Impact) AtLeast(other Impact) bool {
	return i.rank() >= other.rank()
}

// NodeResult identifies one element affected by a violation.
type NodeResult struct {
	Target         string `json:"target"`
	HTML           string `json:"html,omitempty"`
	FailureSummary string `json:"failure_summary,omitempty"`
}

// Violation is a single rule failure with the elements it affects.
type Violation struct {
	RuleID      string       `json:"id"`
	Impact      Impact       `json:"impact"`
	Description string       `json:"description"`
	Help        string       `json:"help"`
	HelpURL     string       `json:"help_url,omitempty"`
	Nodes       []NodeResult `json:"nodes"`
}

// ElementCount returns the number of affected elements, never below one:
// a violation with no recorded nodes still failed somewhere.
func (v *Violation) ElementCount() int {
	if len(v.Nodes) == 0 {
		return 1
	}
	return len(v.Nodes)
}

// RuleIDs lists the failing rule ids of a violation set, deduplicated,
// in first-seen order. Persisted per scan so stats can rank the rules
// that fail most often.
func RuleIDs(violations []Violation) []string {
	seen := make(map[string]bool, len(violations))
	ids := make([]string, 0, len(violations))
	for _, v := range violations {
		if v.RuleID == "" || seen[v.RuleID] {
			continue
		}
		seen[v.RuleID] = true
		ids = append(ids, v.RuleID)
	}
	return ids
}

// Pass records a rule that was checked and found no failures.
type Pass struct {
	RuleID      string `json:"id"`
	Description string `json:"description"`
	Elements    int    `json:"elements"`
}

// Result is the raw outcome of evaluating all rules against one page.
type Result struct {
	URL        string      `json:"url,omitempty"`
	Engine     string      `json:"engine,omitempty"`
	Violations []Violation `json:"violations"`
	Passes     []Pass      `json:"passes"`
}
