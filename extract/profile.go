package extract

import "regexp"

// Extraction bounds. Mis-detected containers can absorb unrelated prose and
// dense pages can carry hundreds of file rows; both are clamped.
const (
	maxLabelLen     = 50 // runes per tag or label
	maxTags         = 25
	maxSubResources = 50
)

// Profile describes how one catalog site structures its pages: which
// container marks a listing card, which loose class pattern to fall back to,
// and what an entity path looks like.
type Profile struct {
	Name          string
	Shape         *PathShape
	CardSelector  string         // strategy 1: the site's known card container
	ClassPattern  *regexp.Regexp // strategy 2: broad container class match
	TitleSelector string         // preferred title element inside a card
	DetailTitle   bool           // detail pages re-assert the name via <h1>
}

// ModelHub profiles the model-hub listing markup: repeated article cards,
// loose fallback on anything whose class mentions model or card.
var ModelHub = Profile{
	Name:          "model-hub",
	Shape:         modelPathShape,
	CardSelector:  "article",
	ClassPattern:  regexp.MustCompile(`model|card`),
	TitleSelector: "h4",
}

// PaperIndex profiles the papers-index listing markup: paper-card rows, with
// infinite-scroll items as the known alternative container.
var PaperIndex = Profile{
	Name:          "paper-index",
	Shape:         paperPathShape,
	CardSelector:  "div.paper-card, div.infinite-item",
	ClassPattern:  regexp.MustCompile(`paper|card|item`),
	TitleSelector: "h1, h2, h3",
	DetailTitle:   true,
}
