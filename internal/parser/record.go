package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/slug"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// IDStyle selects how product IDs are formed.
type IDStyle string

const (
	// IDSequence yields "{category}-{n}".
	IDSequence IDStyle = "sequence"
	// IDNamed yields "{category}-{name-slug}-{n}".
	IDNamed IDStyle = "named"
)

var (
	productPathMarkers = []string{"/product/", "/item/", "/goods/"}
	sectionPathMarkers = []string{"/company/", "/catalog/", "/projects/", "/articles/", "/contacts/"}
	servicePrefixes    = []string{"tel:", "mailto:", "#", "javascript:", "data:"}
)

// BuilderOptions holds the record builder limits.
type BuilderOptions struct {
	// Placeholder is a printf template receiving the escaped, shortened name.
	Placeholder           string
	MinNameLength         int
	CardDescriptionLength int
}

// RecordBuilder turns product cards into catalog products.
type RecordBuilder struct {
	base    *url.URL
	cascade *Cascade
	opts    BuilderOptions
	logger  *slog.Logger
}

// NewRecordBuilder creates a builder resolving links against baseURL.
func NewRecordBuilder(baseURL string, cascade *Cascade, opts BuilderOptions, logger *slog.Logger) (*RecordBuilder, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.MinNameLength < 1 {
		opts.MinNameLength = 1
	}
	return &RecordBuilder{
		base:    base,
		cascade: cascade,
		opts:    opts,
		logger:  logger.With("component", "record_builder"),
	}, nil
}

// Build creates a product from a card. index is zero-based; the ID carries
// index+1. Cards without a usable name or pointing into a site section
// rather than a product are rejected with an error.
func (b *RecordBuilder) Build(card *goquery.Selection, categoryID string, index int, style IDStyle) (*catalog.Product, error) {
	name := cardName(card)
	if name == "" {
		return nil, types.ErrNoName
	}
	if utf8.RuneCountInString(name) < b.opts.MinNameLength {
		return nil, fmt.Errorf("%w: %q", types.ErrShortName, name)
	}

	link, err := b.cardLink(card)
	if err != nil {
		return nil, err
	}

	p := &catalog.Product{
		ID:    ProductID(categoryID, name, index, style),
		Name:  name,
		URL:   link,
		Image: b.Resolve(ImageSource(card.Find("img").First())),
	}
	if p.Image == "" {
		p.Image = b.Placeholder(name)
	}
	if desc := b.cascade.First(card, TargetDescription); desc != nil {
		p.Description = Truncate(CollapseSpace(desc.Text()), b.opts.CardDescriptionLength)
	}
	return p, nil
}

// ProductID formats a product identifier.
func ProductID(categoryID, name string, index int, style IDStyle) string {
	if style == IDNamed {
		if s := slug.Make(name); s != "" {
			return fmt.Sprintf("%s-%s-%d", categoryID, s, index+1)
		}
	}
	return fmt.Sprintf("%s-%d", categoryID, index+1)
}

// cardName returns the first heading-like text in the card.
func cardName(card *goquery.Selection) string {
	for _, sel := range []string{"h2", "h3", "h4"} {
		if h := card.Find(sel).First(); h.Length() > 0 {
			return CollapseSpace(h.Text())
		}
	}
	if t := byClass("*", `title|name|heading`)(card).First(); t.Length() > 0 {
		return CollapseSpace(t.Text())
	}
	if a := byClass("a", `title|name`)(card).First(); a.Length() > 0 {
		return CollapseSpace(a.Text())
	}
	return ""
}

// cardLink returns the card's product URL. An empty URL with a nil error
// means the card has no usable anchor.
func (b *RecordBuilder) cardLink(card *goquery.Selection) (string, error) {
	var href string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h := strings.TrimSpace(a.AttrOr("href", ""))
		if h == "" || isServiceLink(h) {
			return true
		}
		href = h
		return false
	})
	if href == "" {
		return "", nil
	}

	abs := b.Resolve(href)
	if abs == "" {
		return "", nil
	}
	lower := strings.ToLower(abs)
	if containsAny(lower, productPathMarkers) {
		return abs, nil
	}
	if containsAny(lower, sectionPathMarkers) {
		return "", fmt.Errorf("%w: %s", types.ErrNotProduct, abs)
	}
	return abs, nil
}

// Resolve makes ref absolute against the base URL. Unparseable refs yield "".
func (b *RecordBuilder) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.base.ResolveReference(u).String()
}

// Placeholder returns the stand-in image URL for a product name.
func (b *RecordBuilder) Placeholder(name string) string {
	return fmt.Sprintf(b.opts.Placeholder, url.QueryEscape(Truncate(name, 20)))
}

// ImageSource returns the first of src, data-src and data-lazy-src.
func ImageSource(img *goquery.Selection) string {
	if img == nil || img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// CollapseSpace trims text and collapses internal whitespace runs.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func isServiceLink(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range servicePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
