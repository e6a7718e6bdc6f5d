package extract

import (
	"regexp"
	"strings"
)

// PathShape validates that a URL path looks like an entity page and derives
// the stable identifier from it. Listing and detail extraction share one
// shape per site so the two can never drift apart.
type PathShape struct {
	pattern  *regexp.Regexp
	reserved map[string]bool // first path segments that are site chrome, not entities
}

// modelPathShape matches hub entity paths of the form /{owner}/{name}.
// Top-level site sections that happen to fit the two-segment shape are
// rejected by the reserved set.
var modelPathShape = &PathShape{
	pattern: regexp.MustCompile(`^/[\w-]+/[\w.-]+$`),
	reserved: map[string]bool{
		"models": true, "datasets": true, "spaces": true, "tasks": true,
		"docs": true, "blog": true, "collections": true, "settings": true,
		"about": true, "login": true, "join": true, "pricing": true,
		"posts": true, "organizations": true, "terms": true, "privacy": true,
	},
}

// paperPathShape matches papers-index entity paths of the form /paper/{slug}.
var paperPathShape = &PathShape{
	pattern: regexp.MustCompile(`^/paper/[\w.-]+$`),
}

// Identify returns the stable identifier derived from path, or ok=false when
// the path does not have the entity shape. The identifier is the path with
// the leading slash stripped ("owner/name", "paper/slug").
func (s *PathShape) Identify(path string) (string, bool) {
	// Strip query and fragment; listing hrefs sometimes carry them.
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !s.pattern.MatchString(path) {
		return "", false
	}
	id := strings.Trim(path, "/")
	if len(s.reserved) > 0 {
		first, _, _ := strings.Cut(id, "/")
		if s.reserved[first] {
			return "", false
		}
	}
	return id, true
}
