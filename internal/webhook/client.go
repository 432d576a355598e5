// Package webhook provides a thin HTTP client that pushes scan
// notifications to a caller-configured endpoint, so teams can route
// score regressions into Slack, PagerDuty or their own tooling.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	httpTimeout    = 10 * time.Second
	maxResponseLen = 1 << 20 // 1 MiB
)

// Client posts scan notifications to a single webhook URL.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

// Notification is the payload posted to the webhook endpoint.
type Notification struct {
	Event      string `json:"event"` // "scan.completed" or "score.regressed"
	ScanID     string `json:"scan_id"`
	URL        string `json:"url"`
	Score      int    `json:"score"`
	PrevScore  *int   `json:"previous_score,omitempty"`
	Severity   string `json:"severity"`
	Violations int    `json:"violations"`
	OccurredAt string `json:"occurred_at"`
}

// NewClient creates a webhook client. Returns nil when no URL is
// configured; callers treat a nil client as notifications disabled.
func NewClient(url, secret string) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts a notification. The receiver's response body is drained
// and discarded.
func (c *Client) Notify(ctx context.Context, n *Notification) error {
	if n.OccurredAt == "" {
		n.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("webhook: marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Token "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseLen))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
