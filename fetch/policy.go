package fetch

import "time"

// Policy configures retry and backoff behavior for a Fetcher. It is an
// explicit constructed value; there is no process-wide mutable fetch state.
type Policy struct {
	MaxAttempts int           // total attempts, not retries (3 = 2 retries)
	BaseDelay   time.Duration // backoff base for attempt 2 onward
	MaxDelay    time.Duration // cap on any single backoff sleep
	JitterMin   float64       // lower bound of the uniform jitter factor
	JitterMax   float64       // upper bound of the uniform jitter factor
	Timeout     time.Duration // per-attempt request timeout
	Politeness  time.Duration // fixed delay before the first attempt
	UserAgents  []string      // pool rotated pseudo-randomly per attempt
}

// DefaultPolicy returns the policy used against catalog sites: 3 attempts,
// 1s base delay doubling per attempt with jitter in [0.5, 2.0], 60s request
// timeout, 1s politeness delay before the first request.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		JitterMin:   0.5,
		JitterMax:   2.0,
		Timeout:     60 * time.Second,
		Politeness:  1 * time.Second,
		UserAgents:  browserAgents,
	}
}

// browserAgents is the outbound identification pool. Rotating across common
// browser strings defends against naive per-agent blocking.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/116.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}
