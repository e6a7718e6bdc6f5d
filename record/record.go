// Package record defines the entities harvested from catalog sites: listing
// records discovered on search/browse pages, detail records enriched from an
// entity's own page, and the batch envelope that gets persisted.
package record

import "time"

// ListingRecord is a partially-populated entity discovered on a listing page.
// Identity is the stable identifier (e.g. "owner/name" for hub models or
// "paper/slug" for papers); two records with the same identifier are the same
// entity at different completeness levels.
type ListingRecord struct {
	ID        string   `json:"identifier"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Downloads string   `json:"downloads,omitempty"`
	Likes     string   `json:"likes,omitempty"`
	Stars     string   `json:"stars,omitempty"`
	Authors   string   `json:"authors,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Updated   string   `json:"updated,omitempty"`
}

// Valid reports whether the record carries the mandatory fields. Records
// without both identifier and name are never persisted.
func (l ListingRecord) Valid() bool {
	return l.ID != "" && l.Name != ""
}

// SubResource is a bounded sub-entity found on a detail page: a model file,
// a linked code repository, or a framework implementation.
type SubResource struct {
	Name      string `json:"name,omitempty"`
	URL       string `json:"url"`
	Size      string `json:"size,omitempty"`
	Framework string `json:"framework,omitempty"`
	Stars     string `json:"stars,omitempty"`
}

// DetailRecord extends a ListingRecord with content fetched from the entity's
// own page. A record whose detail fetch failed keeps only its listing fields.
type DetailRecord struct {
	ListingRecord

	Card            string            `json:"card,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Files           []SubResource     `json:"files,omitempty"`
	Repos           []SubResource     `json:"repos,omitempty"`
	Implementations []SubResource     `json:"implementations,omitempty"`
	CrawledAt       time.Time         `json:"detail_crawled_at,omitzero"`
}

// Merge combines a listing record with detail-page data. The merge is
// additive: identity and listing-only fields are preserved unless the detail
// page re-asserts them with a non-empty value.
func Merge(listing ListingRecord, detail DetailRecord) DetailRecord {
	merged := detail
	merged.ID = listing.ID
	if merged.Name == "" {
		merged.Name = listing.Name
	}
	if merged.URL == "" {
		merged.URL = listing.URL
	}
	if merged.Downloads == "" {
		merged.Downloads = listing.Downloads
	}
	if merged.Likes == "" {
		merged.Likes = listing.Likes
	}
	if merged.Stars == "" {
		merged.Stars = listing.Stars
	}
	if merged.Authors == "" {
		merged.Authors = listing.Authors
	}
	if len(merged.Tags) == 0 {
		merged.Tags = listing.Tags
	}
	if merged.Updated == "" {
		merged.Updated = listing.Updated
	}
	return merged
}

// ListingOnly promotes a listing record to a DetailRecord with no detail
// fields, used when the detail fetch for the record failed.
func ListingOnly(listing ListingRecord) DetailRecord {
	return DetailRecord{ListingRecord: listing}
}

// Batch is the unit of persistence: one timestamped output of a single
// logical crawl operation. Record order is discovery order. Immutable once
// written to the store.
type Batch struct {
	ID        string         `json:"batch_id"`
	Task      string         `json:"task"`
	Sort      string         `json:"sort,omitempty"`
	Query     string         `json:"query,omitempty"`
	SourceURL string         `json:"source_url"`
	Requested int            `json:"requested"`
	Count     int            `json:"count"`
	CrawledAt time.Time      `json:"crawled_at"`
	Records   []DetailRecord `json:"records"`
}
