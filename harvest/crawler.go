package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lukemcguire/hubcrawl/extract"
	"github.com/lukemcguire/hubcrawl/fetch"
	"github.com/lukemcguire/hubcrawl/record"
	"github.com/lukemcguire/hubcrawl/store"
)

// Config tunes one crawler instance.
type Config struct {
	// MaxWorkers bounds concurrent detail fetches.
	MaxWorkers int
	// Policy governs retries, timeouts, and politeness for every request.
	Policy fetch.Policy
	// UserAgent is the identity presented to robots.txt checks.
	UserAgent string
	// SkipKnown skips detail fetches for identifiers the seen tracker already
	// holds. Listing rows are still emitted for them.
	SkipKnown bool
}

// Event reports progress for one harvested entity.
type Event struct {
	Site  string
	Stage string // "listing" or "detail"
	ID    string
	URL   string
	Error string
	Done  int
	Total int
}

// Crawler harvests one site: a single listing fetch followed by optional
// concurrent detail enrichment.
type Crawler struct {
	cfg       Config
	site      Site
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	limiter   *rate.Limiter
	robots    *fetch.RobotsGate
	seen      *store.SeenTracker
	logger    *log.Logger
	eventCh   chan<- Event
}

// New creates a Crawler for site. The seen tracker and event channel are
// optional; pass nil to disable skip-known behavior and progress events.
func New(site Site, cfg Config, seen *store.SeenTracker, eventCh chan<- Event) *Crawler {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = fetch.DefaultPolicy()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "hubcrawl/1.0 (+https://github.com/lukemcguire/hubcrawl)"
	}

	// One request slot per politeness interval, shared across workers.
	interval := cfg.Policy.Politeness
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	// Per-request politeness is the limiter's job here; zeroing the policy
	// delay keeps the fetcher from sleeping a second time.
	policy := cfg.Policy
	policy.Politeness = 0

	return &Crawler{
		cfg:       cfg,
		site:      site,
		fetcher:   fetch.New(policy),
		extractor: extract.NewExtractor(site.Profile()),
		limiter:   limiter,
		robots:    fetch.NewRobotsGate(),
		seen:      seen,
		logger:    log.Default().With("site", site.Name()),
		eventCh:   eventCh,
	}
}

// CrawlListing fetches one listing page for target and returns a batch of
// listing-only records. Fewer records than requested is not an error; a
// failed listing fetch is, and carries the *fetch.FetchError cause.
func (c *Crawler) CrawlListing(ctx context.Context, target Target) (*record.Batch, error) {
	listings, sourceURL, err := c.fetchListing(ctx, target)
	if err != nil {
		return nil, err
	}

	records := make([]record.DetailRecord, len(listings))
	for i, listing := range listings {
		records[i] = record.ListingOnly(listing)
	}
	return c.assemble(target, sourceURL, records), nil
}

// CrawlWithDetails fetches the listing and, when fetchDetails is set,
// enriches every record concurrently. Detail failures degrade individual
// records to listing-only; only a failed listing fetch fails the batch.
func (c *Crawler) CrawlWithDetails(ctx context.Context, target Target, fetchDetails bool) (*record.Batch, error) {
	listings, sourceURL, err := c.fetchListing(ctx, target)
	if err != nil {
		return nil, err
	}
	if !fetchDetails {
		records := make([]record.DetailRecord, len(listings))
		for i, listing := range listings {
			records[i] = record.ListingOnly(listing)
		}
		return c.assemble(target, sourceURL, records), nil
	}

	records := c.enrich(ctx, listings)
	return c.assemble(target, sourceURL, records), nil
}

func (c *Crawler) fetchListing(ctx context.Context, target Target) ([]record.ListingRecord, string, error) {
	listingURL, params, err := c.site.ListingURL(target)
	if err != nil {
		return nil, "", err
	}

	if !c.allowedByRobots(ctx, listingURL) {
		return nil, "", fmt.Errorf("listing URL %s is disallowed by robots.txt", listingURL)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("politeness wait: %w", err)
	}

	c.logger.Info("fetching listing", "url", listingURL, "top_k", target.TopK)
	resp, err := c.fetcher.Fetch(ctx, listingURL, params)
	if err != nil {
		return nil, "", fmt.Errorf("listing fetch: %w", err)
	}

	listings := c.extractor.Listing(resp.Body, target.TopK)
	c.logger.Info("listing extracted", "records", len(listings), "requested", target.TopK)
	c.emit(Event{Site: c.site.Name(), Stage: "listing", URL: listingURL, Done: len(listings), Total: target.TopK})

	// Listing hrefs are site-relative; records leave this package absolute.
	for i := range listings {
		listings[i].URL = c.site.EntityURL(listings[i])
	}
	return listings, listingURL, nil
}

func (c *Crawler) assemble(target Target, sourceURL string, records []record.DetailRecord) *record.Batch {
	return &record.Batch{
		ID:        uuid.NewString(),
		Task:      target.Task,
		Sort:      target.Sort,
		Query:     target.Query,
		SourceURL: sourceURL,
		Requested: target.TopK,
		Count:     len(records),
		CrawledAt: time.Now().UTC(),
		Records:   records,
	}
}

// allowedByRobots checks the robots rules for target. Unreadable rules are
// treated as allow-all (fail-open); an explicit disallow is honored.
func (c *Crawler) allowedByRobots(ctx context.Context, target string) bool {
	allowed, err := c.robots.Allowed(ctx, target, c.cfg.UserAgent)
	if err != nil {
		c.logger.Warn("robots.txt check failed, proceeding", "url", target, "error", err)
	}
	return allowed
}

func (c *Crawler) emit(evt Event) {
	if c.eventCh != nil {
		c.eventCh <- evt
	}
}
