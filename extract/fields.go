package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// numberRe matches the abbreviated counters catalog sites render, e.g.
	// "1.2k", "35M", "847".
	numberRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*[kKmMbB]?\b`)

	// agoRe matches relative date strings on listing cards.
	agoRe = regexp.MustCompile(`(?i)\b(?:\d+\s+)?(?:ago|days?|hours?|minutes?|yesterday)\b`)

	// sizeRe matches human-readable file sizes next to file links.
	sizeRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:B|KB|MB|GB)\b`)
)

// cleanText collapses all whitespace runs in s to single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// hrefPath extracts the path component of an href, which may be relative or
// absolute. Returns "" when the href cannot be parsed.
func hrefPath(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return u.Path
}

// truncateLabel rejects labels longer than maxLabelLen runes: a tag that long
// is almost always a mis-detected container absorbing prose.
func truncateLabel(s string) (string, bool) {
	s = cleanText(s)
	if s == "" || len([]rune(s)) > maxLabelLen {
		return "", false
	}
	return s, true
}

// statNear returns the first abbreviated number inside an element whose text
// mentions keyword, scanning the card's leaf-ish elements.
func statNear(card *goquery.Selection, keywords ...string) string {
	var out string
	card.Find("span, li, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// Skip elements with child elements of their own so a wrapping div
		// doesn't match on behalf of every stat it contains.
		if s.Children().Length() > 0 {
			return true
		}
		text := s.Text()
		lower := strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				if m := numberRe.FindString(text); m != "" {
					out = cleanText(m)
					return false
				}
			}
		}
		return true
	})
	return out
}

// nodeText renders the text content of a selection with one line per text
// node, the way detail cards and abstracts read best.
func nodeText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := cleanText(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// collectTags gathers badge/tag/label texts from sel, dropping over-long
// labels and capping the result.
func collectTags(sel *goquery.Selection) []string {
	var tags []string
	seen := make(map[string]bool)
	sel.Find(`span[class*="tag"], span[class*="badge"], a[class*="badge"], div[class*="label"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if tag, ok := truncateLabel(s.Text()); ok && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
			return len(tags) < maxTags
		})
	return tags
}
