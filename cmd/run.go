package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lukemcguire/hubcrawl/fetch"
	"github.com/lukemcguire/hubcrawl/harvest"
	"github.com/lukemcguire/hubcrawl/store"
)

// runHarvest executes one crawl against site, persists the batch, and prints
// the summary. A batch with zero records is reported as an error so the exit
// status reflects whether anything was obtained.
func runHarvest(site harvest.Site, target harvest.Target) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	policy := fetch.DefaultPolicy()
	policy.Timeout = time.Duration(rootFlags.timeout) * time.Second

	var seen *store.SeenTracker
	if rootFlags.seenFile != "" {
		var err error
		seen, err = store.OpenSeenTracker(rootFlags.seenFile)
		if err != nil {
			return fmt.Errorf("open seen tracker: %w", err)
		}
		defer func() {
			if closeErr := seen.Close(); closeErr != nil {
				log.Warn("closing seen tracker", "error", closeErr)
			}
		}()
	}

	events := make(chan harvest.Event, 64)
	var drained sync.WaitGroup
	drained.Add(1)
	go func() {
		defer drained.Done()
		for evt := range events {
			if evt.Error != "" {
				log.Warn("record degraded", "id", evt.ID, "error", evt.Error)
				continue
			}
			if evt.Stage == "detail" {
				log.Debug("enriched", "id", evt.ID, "done", evt.Done, "total", evt.Total)
			}
		}
	}()

	crawler := harvest.New(site, harvest.Config{
		MaxWorkers: rootFlags.workers,
		Policy:     policy,
		SkipKnown:  rootFlags.skipKnown,
	}, seen, events)

	start := time.Now()
	batch, err := crawler.CrawlWithDetails(ctx, target, rootFlags.details)
	close(events)
	drained.Wait()
	if err != nil {
		return fmt.Errorf("harvest %s: %w", site.Name(), err)
	}

	s, err := store.New(rootFlags.out)
	if err != nil {
		return err
	}
	path, err := s.Save(batch, target.Label())
	if err != nil {
		return fmt.Errorf("save batch: %w", err)
	}

	fmt.Println(renderSummary(batch, path, time.Since(start)))

	if batch.Count == 0 {
		return fmt.Errorf("no records harvested from %s", batch.SourceURL)
	}
	return nil
}
