package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsEntry caches parsed robots.txt data per host. A nil data field means
// allow-all (missing file, server error, or unparseable rules).
type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// RobotsGate fetches and caches robots.txt rules per host. All failure modes
// fail open: the gate never blocks a crawl because robots.txt was unreachable.
type RobotsGate struct {
	client   *http.Client
	cache    sync.Map // host -> *robotsEntry
	cacheTTL time.Duration
}

// NewRobotsGate creates a RobotsGate with its own short-timeout client;
// robots.txt lookups should never stall a crawl the way a listing fetch may.
func NewRobotsGate() *RobotsGate {
	return &RobotsGate{
		client:   &http.Client{Timeout: 5 * time.Second},
		cacheTTL: time.Hour,
	}
}

// Allowed reports whether userAgent may fetch rawURL per the host's
// robots.txt. Errors are returned for visibility but always pair with a true
// verdict.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("parse URL %q: %w", rawURL, err)
	}
	host := parsed.Host
	if host == "" {
		return true, nil
	}

	if cached, ok := g.cache.Load(host); ok {
		entry := cached.(*robotsEntry)
		if time.Since(entry.fetchedAt) < g.cacheTTL {
			if entry.data == nil {
				return true, nil
			}
			return entry.data.TestAgent(parsed.Path, userAgent), nil
		}
	}

	data, err := g.fetchRules(ctx, parsed.Scheme, host)
	g.cache.Store(host, &robotsEntry{data: data, fetchedAt: time.Now()})
	if err != nil {
		return true, err
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(parsed.Path, userAgent), nil
}

// fetchRules retrieves and parses robots.txt for one host. A nil result with
// nil error means the host declared no usable rules.
func (g *RobotsGate) fetchRules(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots.txt request for %s: %w", host, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read robots.txt for %s: %w", host, err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", host, err)
	}
	return data, nil
}
