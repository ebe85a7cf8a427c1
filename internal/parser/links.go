package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/slug"
)

// LinkCandidate is a product anchor found without a recognizable card.
type LinkCandidate struct {
	Name string
	URL  string

	// Container is the closest div, article or li around the anchor. It may be empty.
	Container *goquery.Selection
}

// filterPathMarkers are catalog filter links that look like product paths.
var filterPathMarkers = []string{"filter/", "clear/", "apply/"}

// ProductLinks scans every anchor for links one level below the category
// path, e.g. /product/<category>/<item>/. Results keep document order and are
// not deduplicated.
func (b *RecordBuilder) ProductLinks(doc *goquery.Selection, categoryPath string) []LinkCandidate {
	catURL, err := url.Parse(b.Resolve(categoryPath))
	if err != nil || catURL.Path == "" {
		return nil
	}
	prefix := strings.TrimSuffix(catURL.Path, "/") + "/"

	var out []LinkCandidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || isServiceLink(href) || containsAny(strings.ToLower(href), filterPathMarkers) {
			return
		}
		abs := b.Resolve(href)
		u, err := url.Parse(abs)
		if err != nil || !strings.EqualFold(u.Host, catURL.Host) || !strings.HasPrefix(u.Path, prefix) {
			return
		}
		rest := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
		if rest == "" || strings.Contains(rest, "/") {
			return
		}
		name := CollapseSpace(a.Text())
		if len([]rune(name)) < b.opts.MinNameLength {
			return
		}
		out = append(out, LinkCandidate{
			Name:      name,
			URL:       abs,
			Container: a.Closest("div, article, li"),
		})
	})
	return out
}

// BuildFromLink creates a product from a link candidate, taking image and
// short description from the surrounding container.
func (b *RecordBuilder) BuildFromLink(c LinkCandidate, categoryID string, index int, style IDStyle) *catalog.Product {
	p := &catalog.Product{
		ID:   ProductID(categoryID, c.Name, index, style),
		Name: c.Name,
		URL:  c.URL,
	}
	if c.Container != nil && c.Container.Length() > 0 {
		p.Image = b.Resolve(ImageSource(c.Container.Find("img").First()))
		if desc := b.cascade.First(c.Container, TargetDescription); desc != nil {
			p.Description = Truncate(CollapseSpace(desc.Text()), b.opts.CardDescriptionLength)
		}
	}
	if p.Image == "" {
		p.Image = b.Placeholder(c.Name)
	}
	return p
}

// CategoryLinks finds navigation links naming a known category. A link
// qualifies when its text contains a known name and its href mentions
// catalog, category or product. Matched categories keep their configured ID
// and description; Path holds the resolved absolute URL. Duplicate URLs are
// dropped.
func (b *RecordBuilder) CategoryLinks(doc *goquery.Selection, known []config.CategoryDescriptor) []config.CategoryDescriptor {
	seen := make(map[string]bool)
	var out []config.CategoryDescriptor
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := CollapseSpace(a.Text())
		lowerText := strings.ToLower(text)
		if text == "" {
			return
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lowerHref := strings.ToLower(href)
		if !strings.Contains(lowerHref, "catalog") &&
			!strings.Contains(lowerHref, "category") &&
			!strings.Contains(lowerHref, "product") {
			return
		}
		for _, k := range known {
			if !strings.Contains(lowerText, strings.ToLower(k.Name)) {
				continue
			}
			abs := b.Resolve(href)
			if abs == "" || seen[abs] {
				return
			}
			seen[abs] = true
			id := k.ID
			if id == "" {
				id = slug.Make(text)
			}
			out = append(out, config.CategoryDescriptor{
				ID:          id,
				Name:        text,
				Path:        abs,
				Description: k.Description,
			})
			return
		}
	})
	return dedupeCategoryIDs(out)
}

// dedupeCategoryIDs keeps the first category per ID so IDs stay unique.
func dedupeCategoryIDs(cats []config.CategoryDescriptor) []config.CategoryDescriptor {
	seen := make(map[string]bool, len(cats))
	out := cats[:0]
	for _, c := range cats {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
