package scanner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/sightlinehq/sightline/internal/audit"
)

//go:embed axe_run.js
var axeRunScript string

// axeResults mirrors the JSON emitted by the injected axe-core run.
type axeResults struct {
	Violations []axeRule `json:"violations"`
	Passes     []axeRule `json:"passes"`
}

type axeRule struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	HelpURL     string    `json:"helpUrl"`
	Nodes       []axeNode `json:"nodes"`
}

type axeNode struct {
	HTML           string   `json:"html"`
	Target         []string `json:"target"`
	FailureSummary string   `json:"failureSummary"`
}

// scanWithBrowser renders the page in headless Chrome, waits the fixed
// settle delay so dynamic content can land, injects the axe-core rule
// engine and decodes its results.
func (s *Scanner) scanWithBrowser(ctx context.Context, url string) (*audit.Result, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.cfg.Timeout)
	defer cancelTimeout()

	var raw string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.cfg.Settle),
		chromedp.Evaluate(axeRunScript, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser scan: %w", err)
	}

	var results axeResults
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("decode axe results: %w", err)
	}
	return convertAxe(&results, url), nil
}

// convertAxe maps axe-core output onto the shared audit types.
func convertAxe(results *axeResults, url string) *audit.Result {
	out := &audit.Result{
		URL:        url,
		Engine:     "axe",
		Violations: make([]audit.Violation, 0, len(results.Violations)),
		Passes:     make([]audit.Pass, 0, len(results.Passes)),
	}
	for _, r := range results.Violations {
		v := audit.Violation{
			RuleID:      r.ID,
			Impact:      normalizeImpact(r.Impact),
			Description: r.Description,
			Help:        r.Help,
			HelpURL:     r.HelpURL,
			Nodes:       make([]audit.NodeResult, 0, len(r.Nodes)),
		}
		for _, n := range r.Nodes {
			v.Nodes = append(v.Nodes, audit.NodeResult{
				Target:         strings.Join(n.Target, " "),
				HTML:           n.HTML,
				FailureSummary: n.FailureSummary,
			})
		}
		out.Violations = append(out.Violations, v)
	}
	for _, r := range results.Passes {
		out.Passes = append(out.Passes, audit.Pass{
			RuleID:      r.ID,
			Description: r.Description,
			Elements:    len(r.Nodes),
		})
	}
	return out
}

// normalizeImpact folds axe impact strings (which may be empty or null)
// onto the ordinal vocabulary.
func normalizeImpact(impact string) audit.Impact {
	switch audit.Impact(strings.ToLower(impact)) {
	case audit.ImpactCritical:
		return audit.ImpactCritical
	case audit.ImpactSerious:
		return audit.ImpactSerious
	case audit.ImpactModerate:
		return audit.ImpactModerate
	default:
		return audit.ImpactMinor
	}
}

// DefaultSettle is the fixed delay that lets dynamic content settle
// before the rule engine runs.
const DefaultSettle = 3 * time.Second
