// Package harvest orchestrates listing crawls and concurrent detail
// enrichment against a configured site, producing persisted-ready batches.
package harvest

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/lukemcguire/hubcrawl/extract"
	"github.com/lukemcguire/hubcrawl/record"
)

// Target describes one listing crawl. Task holds the task tag (model hub) or
// research area (papers index); an empty Task with Query set means keyword
// search, and an empty Task on the papers index means the trending front page.
type Target struct {
	Task  string
	Sort  string
	Query string
	TopK  int
}

// Label returns the directory label batches for this target are filed under.
func (t Target) Label() string {
	switch {
	case t.Query != "":
		return "search_" + strings.ReplaceAll(strings.ToLower(t.Query), " ", "_")
	case t.Task == "":
		return "trending"
	default:
		return t.Task
	}
}

// Site abstracts one harvestable website: where its listings live, how its
// entity URLs are built, and which extraction profile reads its markup.
type Site interface {
	// Name identifies the site in logs and events.
	Name() string
	// Profile returns the extraction profile for this site's markup.
	Profile() extract.Profile
	// ListingURL builds the listing page URL and query parameters for a
	// target. Sort values are passed through verbatim; unrecognized ones are
	// the server's to reject.
	ListingURL(t Target) (string, url.Values, error)
	// EntityURL returns the absolute detail page URL for a listed record.
	EntityURL(rec record.ListingRecord) string
}

// ModelHub is the model-hub site: listings at /models filtered by pipeline
// tag, entities at /{owner}/{name}.
type ModelHub struct {
	base string
}

// NewModelHub returns a ModelHub rooted at base, e.g. "https://hf-mirror.com".
func NewModelHub(base string) *ModelHub {
	return &ModelHub{base: strings.TrimRight(base, "/")}
}

func (m *ModelHub) Name() string { return "model-hub" }

func (m *ModelHub) Profile() extract.Profile { return extract.ModelHub }

func (m *ModelHub) ListingURL(t Target) (string, url.Values, error) {
	params := url.Values{}
	switch {
	case t.Query != "":
		params.Set("search", t.Query)
	case t.Task != "":
		params.Set("pipeline_tag", t.Task)
	default:
		return "", nil, fmt.Errorf("model hub target needs a task tag or a search query")
	}
	if t.Sort != "" {
		params.Set("sort", t.Sort)
	}
	return m.base + "/models", params, nil
}

func (m *ModelHub) EntityURL(rec record.ListingRecord) string {
	return m.base + "/" + rec.ID
}

// PaperIndex is the papers site: trending front page, per-area listings at
// /area/{area}, search at /search, entities at /paper/{slug}.
type PaperIndex struct {
	base string
}

// NewPaperIndex returns a PaperIndex rooted at base.
func NewPaperIndex(base string) *PaperIndex {
	return &PaperIndex{base: strings.TrimRight(base, "/")}
}

func (p *PaperIndex) Name() string { return "paper-index" }

func (p *PaperIndex) Profile() extract.Profile { return extract.PaperIndex }

func (p *PaperIndex) ListingURL(t Target) (string, url.Values, error) {
	params := url.Values{}
	switch {
	case t.Query != "":
		params.Set("q", t.Query)
		return p.base + "/search", params, nil
	case t.Task == "":
		return p.base + "/", nil, nil
	default:
		if t.Sort != "" && t.Sort != "trending" {
			params.Set("order", t.Sort)
		}
		return p.base + "/area/" + url.PathEscape(t.Task), params, nil
	}
}

func (p *PaperIndex) EntityURL(rec record.ListingRecord) string {
	return p.base + "/" + rec.ID
}

// researchAreas are the area slugs the papers index serves under /area/.
var researchAreas = []string{
	"computer-vision",
	"natural-language-processing",
	"reinforcement-learning",
	"machine-learning",
	"audio",
	"robotics",
	"graphs",
	"time-series",
	"adversarial",
	"knowledge-base",
	"medical",
	"speech",
	"reasoning",
	"music",
	"playing-games",
}

// ResearchAreas returns the known research-area slugs.
func ResearchAreas() []string {
	out := make([]string, len(researchAreas))
	copy(out, researchAreas)
	return out
}

// ValidArea reports whether slug names a known research area.
func ValidArea(slug string) bool {
	return slices.Contains(researchAreas, slug)
}
