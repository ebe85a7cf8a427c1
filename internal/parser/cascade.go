package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Target is the kind of node a cascade looks for.
type Target int

const (
	TargetCard Target = iota
	TargetDescription
	TargetContent
	TargetSpecs
	TargetImage
)

func (t Target) String() string {
	switch t {
	case TargetCard:
		return "card"
	case TargetDescription:
		return "description"
	case TargetContent:
		return "content"
	case TargetSpecs:
		return "specs"
	case TargetImage:
		return "image"
	}
	return "unknown"
}

// Strategy is one structural query. It returns the matched nodes, possibly empty.
type Strategy struct {
	Name  string
	Match func(root *goquery.Selection) *goquery.Selection
}

// NavigationKeywords mark site chrome (contacts, menus, filters) rather than
// product cards.
var NavigationKeywords = []string{
	"телефон", "email", "адрес", "режим работы", "компания", "каталог",
	"проекты", "статьи", "контакты", "размер", "цвет", "изображения",
	"озвучивание", "8 800", "бесплатно", "москва", "санкт-петербург",
}

// ContactKeywords mark contact widgets inside otherwise useful text blocks.
var ContactKeywords = []string{
	"телефон", "email", "режим работы", "8 800",
}

// Cascade runs ordered strategy lists per target and stops at the first
// strategy that yields something after exclusion filtering.
type Cascade struct {
	strategies map[Target][]Strategy
	exclude    map[Target][]string
	logger     *slog.Logger
}

// NewCascade creates a cascade with the built-in strategy tables.
func NewCascade(logger *slog.Logger) *Cascade {
	return &Cascade{
		strategies: map[Target][]Strategy{
			TargetCard:        cardStrategies(),
			TargetDescription: descriptionStrategies(),
			TargetContent:     contentStrategies(),
			TargetSpecs:       specStrategies(),
			TargetImage:       imageStrategies(),
		},
		exclude: map[Target][]string{
			TargetCard:        NavigationKeywords,
			TargetDescription: ContactKeywords,
			TargetContent:     ContactKeywords,
			TargetSpecs:       ContactKeywords,
			TargetImage:       ContactKeywords,
		},
		logger: logger.With("component", "cascade"),
	}
}

// Find returns the nodes matched by the first productive strategy for t.
// An empty result is a normal outcome.
func (c *Cascade) Find(root *goquery.Selection, t Target) []*goquery.Selection {
	if root == nil || root.Length() == 0 {
		return nil
	}
	for _, s := range c.strategies[t] {
		found := c.filter(s.Match(root), c.exclude[t])
		if len(found) > 0 {
			c.logger.Debug("strategy matched", "target", t, "strategy", s.Name, "count", len(found))
			return found
		}
	}
	return nil
}

// First returns the first node Find would return, or nil.
func (c *Cascade) First(root *goquery.Selection, t Target) *goquery.Selection {
	found := c.Find(root, t)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// filter drops excluded candidates and duplicate nodes, keeping document order.
func (c *Cascade) filter(sel *goquery.Selection, keywords []string) []*goquery.Selection {
	if sel == nil {
		return nil
	}
	seen := make(map[*html.Node]bool, sel.Length())
	var out []*goquery.Selection
	sel.Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		if Excluded(s, keywords) {
			return
		}
		out = append(out, s)
	})
	return out
}

// Excluded reports whether the normalized text of s contains any keyword.
func Excluded(s *goquery.Selection, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	text := NormalizeText(s.Text())
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// NormalizeText lowercases text and collapses whitespace runs to one space.
func NormalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// byAttr matches tags whose attr value matches pattern case-insensitively.
func byAttr(tags, attr, pattern string) func(*goquery.Selection) *goquery.Selection {
	re := regexp.MustCompile("(?i)" + pattern)
	return func(root *goquery.Selection) *goquery.Selection {
		return root.Find(tags).FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr(attr)
			return ok && re.MatchString(v)
		})
	}
}

func byClass(tags, pattern string) func(*goquery.Selection) *goquery.Selection {
	return byAttr(tags, "class", pattern)
}

func cardStrategies() []Strategy {
	list := byClass("ul", `products|catalog.*list`)
	generic := byClass("div, article", `card|item`)
	return []Strategy{
		{Name: "product-card-class", Match: byClass("div", `product.*card|card.*product`)},
		{Name: "product-article", Match: byClass("article", `product`)},
		{Name: "data-product", Match: func(root *goquery.Selection) *goquery.Selection {
			return root.Find("div[data-product]")
		}},
		{Name: "product-list", Match: func(root *goquery.Selection) *goquery.Selection {
			return list(root).First().Find("li")
		}},
		{Name: "generic-card-with-heading", Match: func(root *goquery.Selection) *goquery.Selection {
			return generic(root).FilterFunction(func(_ int, s *goquery.Selection) bool {
				return s.Find("h2, h3, h4, h5").Length() > 0
			})
		}},
	}
}

func descriptionStrategies() []Strategy {
	return []Strategy{
		{Name: "description-paragraph", Match: byClass("p", `description|excerpt|text`)},
		{Name: "description-div", Match: byClass("div", `description|excerpt|text`)},
	}
}

func contentStrategies() []Strategy {
	return []Strategy{
		{Name: "tab-content-class", Match: byClass("div", `tab.*content|description.*content|product.*content`)},
		{Name: "content-id", Match: byAttr("div", "id", `description|content|tab`)},
		{Name: "bx-tab-content", Match: byClass("div", `bx-tab-content`)},
		{Name: "content-article", Match: byClass("article", `content|description`)},
		{Name: "text-block-class", Match: byClass("div", `description|content|text`)},
	}
}

func specStrategies() []Strategy {
	return []Strategy{
		{Name: "spec-div", Match: byClass("div", `spec|characteristic|property`)},
		{Name: "spec-list", Match: byClass("ul", `spec|characteristic|property`)},
		{Name: "spec-table", Match: byClass("table", `spec|characteristic`)},
	}
}

// withSource keeps only images carrying a usable source attribute.
func withSource(match func(*goquery.Selection) *goquery.Selection) func(*goquery.Selection) *goquery.Selection {
	return func(root *goquery.Selection) *goquery.Selection {
		return match(root).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return ImageSource(s) != ""
		})
	}
}

// imageNoise marks decorative image paths.
var imageNoise = []string{"icon", "logo", "banner", "header", "footer"}

func imageStrategies() []Strategy {
	return []Strategy{
		{Name: "product-image-class", Match: withSource(byClass("img", `product|main|featured`))},
		{Name: "product-image-id", Match: withSource(byAttr("img", "id", `product|main`))},
		{Name: "large-image", Match: func(root *goquery.Selection) *goquery.Selection {
			return root.Find("img[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				src := strings.ToLower(s.AttrOr("src", ""))
				if src == "" {
					return false
				}
				for _, noise := range imageNoise {
					if strings.Contains(src, noise) {
						return false
					}
				}
				return strings.Contains(src, "product") || len(src) > 50
			})
		}},
	}
}
