package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lukemcguire/hubcrawl/record"
)

var (
	// cardRegionSelector finds the dedicated free-text content region of a
	// detail page across both sites.
	cardRegionSelector = `div[class*="model-card"], div[class*="readme"], div[class*="markdown"],` +
		` section[class*="model-card"], div[class*="paper-abstract"]`

	// headingRe anchors the second detail cascade step on a content heading.
	headingRe = regexp.MustCompile(`(?i)model card|readme|abstract`)

	fileHrefRe = regexp.MustCompile(`\.(?:bin|pt|pth|h5|onnx|safetensors|gguf|json|txt)$`)

	githubRepoRe = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)`)

	licenseRe = regexp.MustCompile(`(?i)\b(MIT|Apache[-\s.\d]*|GPL[-\w.]*|LGPL[-\w.]*|BSD[-\w.]*|CC[-\w.]+)\b`)
)

// Detail extracts the entity page for id. Extraction is best-effort
// throughout: any region that cannot be located is simply absent from the
// result, and a page that does not parse yields an identity-only record.
func (e *Extractor) Detail(raw []byte, id string) record.DetailRecord {
	detail := record.DetailRecord{ListingRecord: record.ListingRecord{ID: id}}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		e.logger.Warn("detail page did not parse", "site", e.profile.Name, "id", id, "error", err)
		return detail
	}

	if e.profile.DetailTitle {
		detail.Name = cleanText(doc.Find("h1").First().Text())
	}
	if authors := cleanText(doc.Find(".authors, .author-section").First().Text()); authors != "" {
		detail.Authors = authors
	}

	detail.Card = e.extractCard(doc)
	detail.Metadata = extractMetadata(doc)
	detail.Files = extractFiles(doc)
	detail.Repos = extractRepos(doc)
	detail.Implementations = extractImplementations(doc)
	detail.Tags = collectTags(doc.Selection)
	detail.Downloads = statNear(doc.Selection, "download")
	detail.Likes = statNear(doc.Selection, "like", "♥", "❤")

	return detail
}

// extractCard locates the free-text description with a three-step cascade:
// dedicated content region, heading-anchored container, then the main region
// stripped of navigation chrome. First non-empty result wins.
func (e *Extractor) extractCard(doc *goquery.Document) string {
	if region := doc.Find(cardRegionSelector).First(); region.Length() > 0 {
		if text := nodeText(region); text != "" {
			return text
		}
	}

	var anchored string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !headingRe.MatchString(h.Text()) {
			return true
		}
		container := h.ParentsFiltered("div, section").First()
		if container.Length() == 0 {
			return true
		}
		anchored = nodeText(container)
		return anchored == ""
	})
	if anchored != "" {
		return anchored
	}

	main := doc.Find(`main, div[class*="content"], div[class*="main"]`).First()
	if main.Length() == 0 {
		return ""
	}
	// Clone before stripping chrome so later extraction still sees the page.
	stripped := main.Clone()
	stripped.Find("nav, aside, header, footer").Remove()
	return nodeText(stripped)
}

// extractMetadata scans meta/info regions for "key: value" text and
// normalizes keys to lower snake case. License and language get dedicated
// passes because they matter most downstream.
func extractMetadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find(`div[class*="meta"], section[class*="meta"], div[class*="info"], div[class*="detail"]`).
		Find("div, span, li").
		Each(func(_ int, item *goquery.Selection) {
			if item.Children().Length() > 1 {
				return
			}
			text := cleanText(item.Text())
			key, value, ok := strings.Cut(text, ":")
			if !ok {
				return
			}
			key = cleanText(key)
			value = cleanText(value)
			if key == "" || value == "" || len([]rune(key)) > maxLabelLen || len([]rune(value)) > 200 {
				return
			}
			normalized := strings.ReplaceAll(strings.ToLower(key), " ", "_")
			if _, exists := meta[normalized]; !exists {
				meta[normalized] = value
			}
		})

	if _, ok := meta["license"]; !ok {
		if license := findLicense(doc); license != "" {
			meta["license"] = license
		}
	}

	if len(meta) == 0 {
		return nil
	}
	return meta
}

// findLicense looks for a recognizable license name near any element
// mentioning "license".
func findLicense(doc *goquery.Document) string {
	var out string
	doc.Find("span, div, a, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		text := s.Text()
		if !strings.Contains(strings.ToLower(text), "license") {
			return true
		}
		if m := licenseRe.FindString(text); m != "" && !strings.EqualFold(m, "license") {
			out = cleanText(m)
			return false
		}
		return true
	})
	return out
}

// extractFiles lists downloadable artifacts from the page's file region,
// capped to keep dense repositories from ballooning the record.
func extractFiles(doc *goquery.Document) []record.SubResource {
	region := doc.Find(`div[class*="file"], section[class*="file"]`)
	if region.Length() == 0 {
		return nil
	}
	var files []record.SubResource
	region.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !fileHrefRe.MatchString(hrefPath(href)) {
			return true
		}
		file := record.SubResource{Name: cleanText(a.Text()), URL: href}
		if size := sizeRe.FindString(a.Parent().Text()); size != "" {
			file.Size = cleanText(size)
		}
		files = append(files, file)
		return len(files) < maxSubResources
	})
	return files
}

// extractRepos collects linked code repositories anywhere on the page,
// de-duplicated by owner/name.
func extractRepos(doc *goquery.Document) []record.SubResource {
	var repos []record.SubResource
	seen := make(map[string]bool)
	doc.Find(`a[href*="github.com"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := githubRepoRe.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		fullName := m[1] + "/" + m[2]
		if seen[fullName] {
			return true
		}
		seen[fullName] = true
		repo := record.SubResource{Name: fullName, URL: href}
		if stars := cleanText(a.Parent().Find(".stars").First().Text()); stars != "" {
			repo.Stars = stars
		}
		repos = append(repos, repo)
		return len(repos) < maxSubResources
	})
	return repos
}

// extractImplementations reads the implementations region of a paper page:
// one row per framework port of the paper's code.
func extractImplementations(doc *goquery.Document) []record.SubResource {
	region := doc.Find(`#implementations, div[class*="implementation"]`).First()
	if region.Length() == 0 {
		return nil
	}
	var impls []record.SubResource
	region.Find(`div.row, div[class*="implementation-card"]`).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var impl record.SubResource
		if fw, ok := truncateLabel(row.Find(`span[class*="framework"]`).First().Text()); ok {
			impl.Framework = fw
		}
		if link := row.Find(`a[href*="github.com"]`).First(); link.Length() > 0 {
			impl.URL, _ = link.Attr("href")
			impl.Name = cleanText(link.Text())
		}
		if stars := cleanText(row.Find(".stars").First().Text()); stars != "" {
			impl.Stars = stars
		}
		if impl.URL == "" && impl.Framework == "" {
			return true
		}
		impls = append(impls, impl)
		return len(impls) < maxSubResources
	})
	return impls
}
