// Package reporter files accessibility findings as GitHub issues.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/store"
)

// Reporter creates issues in a single configured repository.
type Reporter struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// New returns a Reporter, or nil when token or repo ("owner/name") is
// not configured.
func New(ctx context.Context, token, repoSlug string, logger *slog.Logger) *Reporter {
	if token == "" || repoSlug == "" {
		return nil
	}
	owner, repo, ok := strings.Cut(repoSlug, "/")
	if !ok || owner == "" || repo == "" {
		logger.Warn("invalid issue repo, expected owner/name", "repo", repoSlug)
		return nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Reporter{
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// CreateIssue files a scan's report as an issue and returns its URL.
func (r *Reporter) CreateIssue(ctx context.Context, scan *store.Scan) (string, error) {
	title := fmt.Sprintf("Accessibility: %s scored %d (%s severity)", scan.URL, scan.Score, scan.Severity)
	body := r.issueBody(scan)
	labels := []string{"accessibility", "severity:" + scan.Severity}

	issue, _, err := r.client.Issues.Create(ctx, r.owner, r.repo, &github.IssueRequest{
		Title:  &title,
		Body:   &body,
		Labels: &labels,
	})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	r.logger.Info("filed issue", "url", issue.GetHTMLURL(), "scan_id", scan.ID)
	return issue.GetHTMLURL(), nil
}

func (r *Reporter) issueBody(scan *store.Scan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Scan of %s\n\n", scan.URL)
	fmt.Fprintf(&b, "- **Score:** %d/100\n", scan.Score)
	fmt.Fprintf(&b, "- **Severity:** %s\n", scan.Severity)
	fmt.Fprintf(&b, "- **Violations:** %d\n", scan.ViolationCount)
	fmt.Fprintf(&b, "- **Checks passed:** %d\n", scan.PassCount)
	fmt.Fprintf(&b, "- **Engine:** %s\n\n", scan.Engine)

	var report audit.Report
	if err := json.Unmarshal(scan.Report, &report); err == nil {
		fmt.Fprintf(&b, "%s\n\n", report.Summary)
		if len(report.Recommendations) > 0 {
			b.WriteString("### Recommendations\n\n")
			for _, rec := range report.Recommendations {
				fmt.Fprintf(&b, "- %s\n", rec)
			}
		}
	}

	fmt.Fprintf(&b, "\n_Scan ID: `%s`_\n", scan.ID)
	return b.String()
}
