// Package fetch implements the resilient HTTP layer used against catalog
// sites: a single GET with jittered exponential backoff, user-agent rotation,
// and status-based retry classification. Not-found responses are terminal;
// transient network and server failures are retried up to the attempt budget.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Response is a successful fetch outcome.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher issues resilient GETs. It is stateless across calls except for the
// shared HTTP client (connection reuse) and the shared random source driving
// jitter and user-agent rotation. Safe for concurrent use.
type Fetcher struct {
	client *http.Client
	policy Policy
	logger *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Fetcher with the given policy and a fresh HTTP client.
// Per-attempt timeouts come from the policy, not the client.
func New(policy Policy) *Fetcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if len(policy.UserAgents) == 0 {
		policy.UserAgents = browserAgents
	}
	return &Fetcher{
		client: &http.Client{},
		policy: policy,
		logger: log.Default(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Fetch issues a GET against rawURL with the given query parameters, retrying
// per the fetcher's policy. On success it returns the 2xx response; on
// terminal failure it returns a *FetchError describing the last attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	var lastErr *FetchError
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		wait := f.policy.Politeness
		if attempt > 1 {
			wait = f.backoff(attempt)
			f.logger.Warn("retrying fetch",
				"url", target, "attempt", attempt, "max", f.policy.MaxAttempts, "wait", wait)
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, f.cancelled(ctx, target, attempt-1, lastErr)
			case <-timer.C:
			}
		}

		status, body, doErr := f.do(ctx, target)
		if doErr != nil {
			lastErr = &FetchError{
				Kind:     classifyNetError(doErr),
				URL:      target,
				Attempts: attempt,
				Err:      doErr,
			}
			if ctx.Err() != nil {
				// Parent context expired; further attempts are futile.
				return nil, lastErr
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			return &Response{StatusCode: status, Body: body}, nil
		case status == http.StatusNotFound:
			// Terminal regardless of remaining budget.
			return nil, &FetchError{Kind: KindNotFound, URL: target, Status: status, Attempts: attempt}
		default:
			lastErr = &FetchError{Kind: KindHTTPError, URL: target, Status: status, Attempts: attempt}
			if retryableStatus[status] {
				f.logger.Debug("transient server status", "url", target, "status", status)
			}
		}
	}

	return nil, lastErr
}

// do performs one attempt with a rotated user agent and the per-attempt
// timeout, returning the status and fully-read body.
func (f *Fetcher) do(ctx context.Context, target string) (int, []byte, error) {
	attemptCtx := ctx
	if f.policy.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.policy.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.pickAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// backoff computes the sleep before retry attempt k (k >= 2):
// BaseDelay * 2^(k-1) * jitter, jitter uniform in [JitterMin, JitterMax],
// capped at MaxDelay. Jitter keeps concurrent workers from synchronizing
// their retry storms.
func (f *Fetcher) backoff(attempt int) time.Duration {
	f.mu.Lock()
	jitter := f.policy.JitterMin + f.rng.Float64()*(f.policy.JitterMax-f.policy.JitterMin)
	f.mu.Unlock()

	delay := float64(f.policy.BaseDelay) * math.Pow(2, float64(attempt-1)) * jitter
	if ceiling := float64(f.policy.MaxDelay); f.policy.MaxDelay > 0 && delay > ceiling {
		delay = ceiling
	}
	return time.Duration(delay)
}

func (f *Fetcher) pickAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policy.UserAgents[f.rng.IntN(len(f.policy.UserAgents))]
}

// cancelled builds the error returned when the caller's context ends during a
// backoff sleep. The last classified attempt error wins if one exists.
func (f *Fetcher) cancelled(ctx context.Context, target string, attempts int, lastErr *FetchError) error {
	if lastErr != nil {
		return lastErr
	}
	return &FetchError{
		Kind:     classifyNetError(ctx.Err()),
		URL:      target,
		Attempts: attempts,
		Err:      ctx.Err(),
	}
}

func buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
