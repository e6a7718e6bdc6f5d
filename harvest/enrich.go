package harvest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/hubcrawl/record"
)

// enrich fetches the detail page for every listing concurrently, bounded by
// MaxWorkers. The result slice has exactly one record per input listing, in
// input order; any listing whose detail could not be fetched or extracted is
// carried through as listing-only.
func (c *Crawler) enrich(ctx context.Context, listings []record.ListingRecord) []record.DetailRecord {
	results := make([]record.DetailRecord, len(listings))

	var mu sync.Mutex
	done := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.MaxWorkers)
	for i, listing := range listings {
		group.Go(func() error {
			rec, errMsg := c.fetchDetail(groupCtx, listing)
			results[i] = rec

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			c.emit(Event{
				Site:  c.site.Name(),
				Stage: "detail",
				ID:    listing.ID,
				URL:   listing.URL,
				Error: errMsg,
				Done:  n,
				Total: len(listings),
			})
			// Detail failures never cancel sibling fetches.
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// fetchDetail returns the enriched record for one listing, or the listing
// carried through unchanged with a non-empty error message when enrichment
// was skipped or failed.
func (c *Crawler) fetchDetail(ctx context.Context, listing record.ListingRecord) (record.DetailRecord, string) {
	if c.cfg.SkipKnown && c.seen != nil && c.seen.Seen(listing.ID) {
		c.logger.Debug("skipping known entity", "id", listing.ID)
		return record.ListingOnly(listing), ""
	}

	if !c.allowedByRobots(ctx, listing.URL) {
		c.logger.Warn("detail disallowed by robots.txt", "id", listing.ID, "url", listing.URL)
		return record.ListingOnly(listing), "disallowed by robots.txt"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return record.ListingOnly(listing), err.Error()
	}

	resp, err := c.fetcher.Fetch(ctx, listing.URL, nil)
	if err != nil {
		c.logger.Error("detail fetch failed", "id", listing.ID, "error", err)
		return record.ListingOnly(listing), err.Error()
	}

	detail := c.extractor.Detail(resp.Body, listing.ID)
	detail.CrawledAt = time.Now().UTC()
	if c.seen != nil {
		c.seen.Mark(listing.ID)
	}
	c.logger.Debug("detail enriched", "id", listing.ID)
	return record.Merge(listing, detail), ""
}
