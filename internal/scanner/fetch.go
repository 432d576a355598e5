package scanner

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sightlinehq/sightline/internal/audit"
	"github.com/sightlinehq/sightline/internal/netguard"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; Sightline/1.0; +https://github.com/sightlinehq/sightline)"
	maxBodyBytes     = 8 << 20 // 8 MiB of HTML is plenty for any real page
)

// staticClient fetches target pages without a browser. The dialer
// re-validates every destination so redirects cannot reach internal
// networks.
var staticClient = &http.Client{
	Transport: &http.Transport{
		DialContext:         netguard.SafeDialContext(&net.Dialer{Timeout: 10 * time.Second}),
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	},
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// scanStatic fetches the page over plain HTTP and evaluates the native
// rule engine against the parsed DOM. It is both the fallback when no
// browser is available and the deterministic path used by tests.
func (s *Scanner) scanStatic(ctx context.Context, url string) (*audit.Result, error) {
	html, err := s.fetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	result := audit.Evaluate(doc)
	result.URL = url
	return result, nil
}

func (s *Scanner) fetchHTML(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := staticClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
