// Package extract turns raw catalog-site HTML into structured records. The
// markup of the target sites is not contractually stable, so listing
// extraction runs an ordered cascade of strategies, each more permissive than
// the last, and stops at the first one that yields usable records.
package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/lukemcguire/hubcrawl/record"
)

// listingStrategy is one pure extraction heuristic. Strategies never merge
// their partial results; the cascade takes the first non-empty outcome so
// mismatched heuristics cannot double-count entities.
type listingStrategy interface {
	name() string
	extract(doc *goquery.Document, raw []byte, limit int) []record.ListingRecord
}

// Extractor parses listing and detail pages for one site profile.
type Extractor struct {
	profile    Profile
	logger     *log.Logger
	strategies []listingStrategy
}

// NewExtractor builds an Extractor for the given site profile with the
// standard strategy cascade: known card container, loose class pattern, bare
// entity-link scan.
func NewExtractor(profile Profile) *Extractor {
	return &Extractor{
		profile: profile,
		logger:  log.Default(),
		strategies: []listingStrategy{
			cardStrategy{profile},
			classStrategy{profile},
			linkStrategy{profile},
		},
	}
}

// Listing extracts up to limit records from a listing page. Candidates
// without a valid identifier and name are discarded; all other fields are
// independently best-effort. An empty result is not an error: the caller
// decides whether zero records is acceptable.
func (e *Extractor) Listing(raw []byte, limit int) []record.ListingRecord {
	if limit <= 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		e.logger.Warn("listing page did not parse", "site", e.profile.Name, "error", err)
		doc = nil
	}

	for _, strategy := range e.strategies {
		records := strategy.extract(doc, raw, limit)
		if len(records) > 0 {
			e.logger.Debug("listing extracted",
				"site", e.profile.Name, "strategy", strategy.name(), "records", len(records))
			return records
		}
		e.logger.Debug("strategy yielded nothing",
			"site", e.profile.Name, "strategy", strategy.name())
	}
	return nil
}

// cardStrategy reads the site's known repeated card container.
type cardStrategy struct{ profile Profile }

func (s cardStrategy) name() string { return "card" }

func (s cardStrategy) extract(doc *goquery.Document, _ []byte, limit int) []record.ListingRecord {
	if doc == nil {
		return nil
	}
	var records []record.ListingRecord
	seen := make(map[string]bool)
	doc.Find(s.profile.CardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if rec, ok := candidateFromCard(card, s.profile); ok && !seen[rec.ID] {
			seen[rec.ID] = true
			records = append(records, rec)
		}
		return len(records) < limit
	})
	return records
}

// classStrategy accepts any div whose class attribute matches the site's
// broad pattern. Looser than cardStrategy: it fires when the site reworks
// its card element but keeps recognizable class names.
type classStrategy struct{ profile Profile }

func (s classStrategy) name() string { return "class-pattern" }

func (s classStrategy) extract(doc *goquery.Document, _ []byte, limit int) []record.ListingRecord {
	if doc == nil {
		return nil
	}
	var records []record.ListingRecord
	seen := make(map[string]bool)
	doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		class, _ := div.Attr("class")
		if class == "" || !s.profile.ClassPattern.MatchString(class) {
			return true
		}
		if rec, ok := candidateFromCard(div, s.profile); ok && !seen[rec.ID] {
			seen[rec.ID] = true
			records = append(records, rec)
		}
		return len(records) < limit
	})
	return records
}

// candidateFromCard derives one record from a container: the first anchor
// whose href has the entity shape provides identity; every other field is
// optional and its absence never discards the candidate.
func candidateFromCard(card *goquery.Selection, profile Profile) (record.ListingRecord, bool) {
	var rec record.ListingRecord
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		id, ok := profile.Shape.Identify(hrefPath(href))
		if !ok {
			return true
		}
		rec.ID = id
		rec.URL = href
		rec.Name = cleanText(a.Text())
		return false
	})
	if rec.ID == "" {
		return rec, false
	}

	if rec.Name == "" {
		if title := cleanText(card.Find(profile.TitleSelector).First().Text()); title != "" {
			rec.Name = title
		} else {
			rec.Name = rec.ID
		}
	}

	rec.Downloads = statNear(card, "download")
	rec.Likes = statNear(card, "like", "♥", "❤")
	if stars := cleanText(card.Find(".stars-accumulated, .badge-stars, .stars").First().Text()); stars != "" {
		rec.Stars = stars
	}
	if authors := cleanText(card.Find(".authors, .author-section").First().Text()); authors != "" {
		rec.Authors = authors
	}
	rec.Tags = collectTags(card)
	rec.Updated = findUpdated(card)

	return rec, rec.Valid()
}

// findUpdated looks for a relative date on the card: a time element first,
// then any short text that reads like "3 days ago".
func findUpdated(card *goquery.Selection) string {
	if t := cleanText(card.Find("time, .date").First().Text()); t != "" {
		return t
	}
	var out string
	card.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if text, ok := truncateLabel(s.Text()); ok && agoRe.MatchString(text) {
			out = text
			return false
		}
		return true
	})
	return out
}
