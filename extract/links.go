package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lukemcguire/hubcrawl/record"
)

// linkStrategy is the loosest cascade step: a raw tokenizer walk over every
// anchor on the page, keeping only hrefs with the entity shape. It needs no
// intact container structure at all, so it survives arbitrary layout drift,
// at the cost of yielding identity and name only.
type linkStrategy struct{ profile Profile }

func (s linkStrategy) name() string { return "entity-links" }

func (s linkStrategy) extract(_ *goquery.Document, raw []byte, limit int) []record.ListingRecord {
	tokenizer := html.NewTokenizer(bytes.NewReader(raw))
	seen := make(map[string]bool)
	var records []record.ListingRecord

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// End of document or malformed tail; either way we are done.
			return records
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			var href string
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					href = attr.Val
					break
				}
			}
			id, ok := s.profile.Shape.Identify(hrefPath(href))
			if !ok || seen[id] {
				continue
			}

			name := anchorText(tokenizer)
			if name == "" {
				name = id
			}
			seen[id] = true
			records = append(records, record.ListingRecord{ID: id, Name: name, URL: href})
			if len(records) >= limit {
				return records
			}
		}
	}
}

// anchorText consumes tokens up to the matching </a> and returns the
// accumulated text content.
func anchorText(tokenizer *html.Tokenizer) string {
	var buf bytes.Buffer
	// Anchors never nest; an error or a new <a> also terminates the scan.
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return cleanText(buf.String())
		case html.TextToken:
			buf.Write(tokenizer.Text())
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "a" {
				return cleanText(buf.String())
			}
		case html.StartTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "a" {
				return cleanText(buf.String())
			}
		}
	}
}
