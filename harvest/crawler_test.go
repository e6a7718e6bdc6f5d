package harvest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lukemcguire/hubcrawl/fetch"
	"github.com/lukemcguire/hubcrawl/harvest"
	"github.com/lukemcguire/hubcrawl/store"
)

const listingPage = `<html><body><main>
<article><a href="/openai/whisper-large-v3"><h4>whisper-large-v3</h4></a><span>Downloads 2.1M</span></article>
<article><a href="/meta-llama/Llama-3.1-8B"><h4>Llama-3.1-8B</h4></a><span>Downloads 900k</span></article>
<article><a href="/google/gemma-2-9b"><h4>gemma-2-9b</h4></a><span>Downloads 340k</span></article>
</main></body></html>`

var listedIDs = []string{
	"openai/whisper-large-v3",
	"meta-llama/Llama-3.1-8B",
	"google/gemma-2-9b",
}

func detailPage(id string) string {
	return fmt.Sprintf(`<html><body>
<div class="model-card-content"><p>Card for %s describing the model.</p></div>
</body></html>`, id)
}

// testConfig keeps politeness and retries out of the test's way.
func testConfig() harvest.Config {
	return harvest.Config{
		MaxWorkers: 4,
		Policy: fetch.Policy{
			MaxAttempts: 1,
			Timeout:     5 * time.Second,
			JitterMin:   1,
			JitterMax:   1,
		},
	}
}

// hubServer serves a model-hub shaped site: a listing at /models and one
// detail page per listed identifier. failIDs get a 500 instead.
func hubServer(t *testing.T, failIDs map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		if failIDs[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, detailPage(id))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlListingReturnsBatch(t *testing.T) {
	srv := hubServer(t, nil)
	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, nil)

	batch, err := c.CrawlListing(context.Background(), harvest.Target{
		Task: "text-generation", Sort: "trending", TopK: 10,
	})
	if err != nil {
		t.Fatalf("CrawlListing() error: %v", err)
	}

	if len(batch.ID) != 36 {
		t.Errorf("batch ID = %q, want a UUID", batch.ID)
	}
	if batch.Task != "text-generation" || batch.Sort != "trending" {
		t.Errorf("batch envelope = %q/%q, want text-generation/trending", batch.Task, batch.Sort)
	}
	if batch.Requested != 10 || batch.Count != 3 {
		t.Errorf("requested/count = %d/%d, want 10/3: fewer rows than asked is not an error", batch.Requested, batch.Count)
	}
	if !strings.Contains(batch.SourceURL, "/models") {
		t.Errorf("source URL = %q, want the listing URL", batch.SourceURL)
	}
	if batch.CrawledAt.IsZero() {
		t.Error("batch CrawledAt is zero")
	}

	for i, rec := range batch.Records {
		if rec.ID != listedIDs[i] {
			t.Errorf("record[%d].ID = %q, want %q (discovery order)", i, rec.ID, listedIDs[i])
		}
		if want := srv.URL + "/" + listedIDs[i]; rec.URL != want {
			t.Errorf("record[%d].URL = %q, want absolute %q", i, rec.URL, want)
		}
		if rec.Card != "" {
			t.Errorf("record[%d] carries detail content on a listing-only crawl", i)
		}
	}
}

func TestCrawlWithDetailsEnriches(t *testing.T) {
	srv := hubServer(t, nil)
	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, nil)

	batch, err := c.CrawlWithDetails(context.Background(), harvest.Target{
		Task: "text-generation", Sort: "trending", TopK: 3,
	}, true)
	if err != nil {
		t.Fatalf("CrawlWithDetails() error: %v", err)
	}
	if len(batch.Records) != 3 {
		t.Fatalf("got %d records, want one per listing", len(batch.Records))
	}

	for i, rec := range batch.Records {
		if rec.ID != listedIDs[i] {
			t.Errorf("record[%d].ID = %q, want %q (listing order preserved)", i, rec.ID, listedIDs[i])
		}
		if !strings.Contains(rec.Card, "Card for "+rec.ID) {
			t.Errorf("record[%d].Card = %q, want detail card content", i, rec.Card)
		}
		if rec.CrawledAt.IsZero() {
			t.Errorf("record[%d] has no detail crawl timestamp", i)
		}
	}
}

func TestCrawlWithDetailsDisabled(t *testing.T) {
	detailHits := 0
	var mu sync.Mutex
	srv := hubServer(t, nil)
	// Swap in a counting detail handler by wrapping the whole server.
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" && r.URL.Path != "/robots.txt" {
			mu.Lock()
			detailHits++
			mu.Unlock()
		}
		srv.Config.Handler.ServeHTTP(w, r)
	}))
	defer counting.Close()

	c := harvest.New(harvest.NewModelHub(counting.URL), testConfig(), nil, nil)
	batch, err := c.CrawlWithDetails(context.Background(), harvest.Target{Task: "text-generation", TopK: 3}, false)
	if err != nil {
		t.Fatalf("CrawlWithDetails() error: %v", err)
	}
	if len(batch.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(batch.Records))
	}
	mu.Lock()
	defer mu.Unlock()
	if detailHits != 0 {
		t.Errorf("detail pages fetched %d times with enrichment disabled", detailHits)
	}
}

func TestDetailFailureDegradesToListing(t *testing.T) {
	srv := hubServer(t, map[string]bool{"meta-llama/Llama-3.1-8B": true})
	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, nil)

	batch, err := c.CrawlWithDetails(context.Background(), harvest.Target{Task: "text-generation", TopK: 3}, true)
	if err != nil {
		t.Fatalf("CrawlWithDetails() error: %v, want detail failures absorbed", err)
	}
	if len(batch.Records) != 3 {
		t.Fatalf("got %d records, want every listing represented", len(batch.Records))
	}

	failed := batch.Records[1]
	if failed.ID != "meta-llama/Llama-3.1-8B" {
		t.Fatalf("record[1].ID = %q, order not preserved", failed.ID)
	}
	if failed.Card != "" {
		t.Errorf("failed record carries detail content %q, want listing-only fallback", failed.Card)
	}
	if failed.Name != "Llama-3.1-8B" {
		t.Errorf("failed record lost listing fields: name = %q", failed.Name)
	}
	for _, i := range []int{0, 2} {
		if batch.Records[i].Card == "" {
			t.Errorf("record[%d] not enriched despite its detail page succeeding", i)
		}
	}
}

func TestListingFetchErrorPropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, nil)
	_, err := c.CrawlListing(context.Background(), harvest.Target{Task: "text-generation", TopK: 5})
	if err == nil {
		t.Fatal("CrawlListing() succeeded against a failing listing page")
	}

	var fetchErr *fetch.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error %v does not unwrap to *fetch.FetchError", err)
	}
	if fetchErr.Status != http.StatusServiceUnavailable {
		t.Errorf("FetchError.Status = %d, want 503", fetchErr.Status)
	}
}

func TestSkipKnownSuppressesDetailFetch(t *testing.T) {
	var mu sync.Mutex
	detailPaths := map[string]int{}

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, listingPage) })
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		mu.Lock()
		detailPaths[id]++
		mu.Unlock()
		fmt.Fprint(w, detailPage(id))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	seen, err := store.OpenSeenTracker(filepath.Join(t.TempDir(), "seen.bloom"))
	if err != nil {
		t.Fatalf("OpenSeenTracker() error: %v", err)
	}
	defer seen.Close()
	seen.Mark("openai/whisper-large-v3")

	cfg := testConfig()
	cfg.SkipKnown = true
	c := harvest.New(harvest.NewModelHub(srv.URL), cfg, seen, nil)

	batch, err := c.CrawlWithDetails(context.Background(), harvest.Target{Task: "text-generation", TopK: 3}, true)
	if err != nil {
		t.Fatalf("CrawlWithDetails() error: %v", err)
	}

	mu.Lock()
	hits := detailPaths["openai/whisper-large-v3"]
	mu.Unlock()
	if hits != 0 {
		t.Errorf("known entity fetched %d times, want 0", hits)
	}
	if batch.Records[0].Card != "" {
		t.Error("known entity carries detail content, want listing-only")
	}
	if batch.Records[1].Card == "" || batch.Records[2].Card == "" {
		t.Error("unknown entities were not enriched")
	}
	if !seen.Seen("meta-llama/Llama-3.1-8B") {
		t.Error("freshly enriched entity not marked in seen tracker")
	}
}

func TestRobotsDisallowBlocksListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /models\n")
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, listingPage) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, nil)
	_, err := c.CrawlListing(context.Background(), harvest.Target{Task: "text-generation", TopK: 3})
	if err == nil || !strings.Contains(err.Error(), "robots.txt") {
		t.Fatalf("CrawlListing() error = %v, want robots.txt disallow", err)
	}
}

func TestEnrichBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, listingPage) })
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		fmt.Fprint(w, detailPage(strings.TrimPrefix(r.URL.Path, "/")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxWorkers = 1
	c := harvest.New(harvest.NewModelHub(srv.URL), cfg, nil, nil)

	if _, err := c.CrawlWithDetails(context.Background(), harvest.Target{Task: "text-generation", TopK: 3}, true); err != nil {
		t.Fatalf("CrawlWithDetails() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 1 {
		t.Errorf("peak concurrent detail fetches = %d, want at most 1", peak)
	}
}

func TestProgressEvents(t *testing.T) {
	srv := hubServer(t, nil)
	events := make(chan harvest.Event, 16)
	c := harvest.New(harvest.NewModelHub(srv.URL), testConfig(), nil, events)

	if _, err := c.CrawlWithDetails(context.Background(), harvest.Target{Task: "text-generation", TopK: 3}, true); err != nil {
		t.Fatalf("CrawlWithDetails() error: %v", err)
	}
	close(events)

	listing, detail := 0, 0
	for evt := range events {
		switch evt.Stage {
		case "listing":
			listing++
		case "detail":
			detail++
			if evt.Total != 3 {
				t.Errorf("detail event total = %d, want 3", evt.Total)
			}
		}
	}
	if listing != 1 || detail != 3 {
		t.Errorf("got %d listing / %d detail events, want 1/3", listing, detail)
	}
}

func TestModelHubListingURL(t *testing.T) {
	hub := harvest.NewModelHub("https://hf-mirror.com")

	tests := []struct {
		name       string
		target     harvest.Target
		wantPath   string
		wantParams url.Values
		wantErr    bool
	}{
		{
			name:       "task listing",
			target:     harvest.Target{Task: "text-generation", Sort: "trending"},
			wantPath:   "https://hf-mirror.com/models",
			wantParams: url.Values{"pipeline_tag": {"text-generation"}, "sort": {"trending"}},
		},
		{
			name:       "keyword search",
			target:     harvest.Target{Query: "speech recognition", Sort: "downloads"},
			wantPath:   "https://hf-mirror.com/models",
			wantParams: url.Values{"search": {"speech recognition"}, "sort": {"downloads"}},
		},
		{
			name:    "neither task nor query",
			target:  harvest.Target{Sort: "trending"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath, gotParams, err := hub.ListingURL(tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ListingURL() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ListingURL() error: %v", err)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if gotParams.Encode() != tt.wantParams.Encode() {
				t.Errorf("params = %q, want %q", gotParams.Encode(), tt.wantParams.Encode())
			}
		})
	}
}

func TestPaperIndexListingURL(t *testing.T) {
	idx := harvest.NewPaperIndex("https://paperswithcode.com")

	tests := []struct {
		name       string
		target     harvest.Target
		wantPath   string
		wantParams string
	}{
		{
			name:     "trending front page",
			target:   harvest.Target{},
			wantPath: "https://paperswithcode.com/",
		},
		{
			name:       "area newest",
			target:     harvest.Target{Task: "computer-vision", Sort: "newest"},
			wantPath:   "https://paperswithcode.com/area/computer-vision",
			wantParams: "order=newest",
		},
		{
			name:     "area trending omits order",
			target:   harvest.Target{Task: "computer-vision", Sort: "trending"},
			wantPath: "https://paperswithcode.com/area/computer-vision",
		},
		{
			name:       "keyword search",
			target:     harvest.Target{Query: "diffusion"},
			wantPath:   "https://paperswithcode.com/search",
			wantParams: "q=diffusion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath, gotParams, err := idx.ListingURL(tt.target)
			if err != nil {
				t.Fatalf("ListingURL() error: %v", err)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if gotParams.Encode() != tt.wantParams {
				t.Errorf("params = %q, want %q", gotParams.Encode(), tt.wantParams)
			}
		})
	}
}

func TestResearchAreas(t *testing.T) {
	areas := harvest.ResearchAreas()
	if len(areas) != 15 {
		t.Fatalf("got %d research areas, want 15", len(areas))
	}
	for _, slug := range []string{"computer-vision", "natural-language-processing", "playing-games"} {
		if !harvest.ValidArea(slug) {
			t.Errorf("ValidArea(%q) = false, want true", slug)
		}
	}
	if harvest.ValidArea("underwater-basket-weaving") {
		t.Error("ValidArea accepted an unknown slug")
	}

	// Callers must not be able to mutate the shared list.
	areas[0] = "mutated"
	if !harvest.ValidArea("computer-vision") {
		t.Error("mutating the returned slice changed the known areas")
	}
}

func TestTargetLabel(t *testing.T) {
	tests := []struct {
		target harvest.Target
		want   string
	}{
		{harvest.Target{Task: "text-generation"}, "text-generation"},
		{harvest.Target{Query: "Speech Recognition"}, "search_speech_recognition"},
		{harvest.Target{}, "trending"},
		{harvest.Target{Task: "computer-vision", Query: "diffusion"}, "search_diffusion"},
	}
	for _, tt := range tests {
		if got := tt.target.Label(); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
