package parser

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

var specItemClass = regexp.MustCompile(`(?i)item|row`)

// DetailExtractor pulls long-form product data from a product detail page.
type DetailExtractor struct {
	cascade   *Cascade
	segmenter *Segmenter
	maxSpecs  int
	logger    *slog.Logger
}

// NewDetailExtractor creates an extractor. maxSpecs caps the specification list.
func NewDetailExtractor(cascade *Cascade, segmenter *Segmenter, maxSpecs int, logger *slog.Logger) *DetailExtractor {
	return &DetailExtractor{
		cascade:   cascade,
		segmenter: segmenter,
		maxSpecs:  maxSpecs,
		logger:    logger.With("component", "detail_extractor"),
	}
}

// Extract returns a partial product holding whatever the page yields. Fields
// that were not found stay empty; identity fields are never set.
func (e *DetailExtractor) Extract(page *types.Page) (*catalog.Product, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(page.URL())
	if err != nil {
		return nil, &types.ParseError{URL: page.URL(), Err: err}
	}

	p := &catalog.Product{}
	root := doc.Selection
	root.Find("script, style, noscript").Remove()

	if img := e.cascade.First(root, TargetImage); img != nil {
		p.Image = resolveAgainst(base, ImageSource(img))
	}
	p.Specifications = e.specifications(root)

	content := e.cascade.First(root, TargetContent)
	if content == nil {
		content = root.Find("body").First()
	}
	if content.Length() > 0 {
		content.Find("nav, header, footer").Remove()
		seg := e.segmenter.Segment(TextLines(content))
		for field, value := range seg.Fields {
			if dst := p.TextField(field); dst != nil {
				*dst = value
			}
		}
		p.TechnicalCharacteristics = seg.Characteristics
	}

	for k, v := range e.tableCharacteristics(page) {
		if p.TechnicalCharacteristics == nil {
			p.TechnicalCharacteristics = make(map[string]string)
		}
		p.TechnicalCharacteristics[k] = v
	}

	e.logger.Debug("detail extracted",
		"url", page.URL(),
		"description", p.Description != "",
		"image", p.Image != "",
		"specifications", len(p.Specifications),
		"characteristics", len(p.TechnicalCharacteristics),
	)
	return p, nil
}

// specifications reads the spec block: table rows become "label: value",
// otherwise list items or item/row divs are taken verbatim.
func (e *DetailExtractor) specifications(root *goquery.Selection) []string {
	block := e.cascade.First(root, TargetSpecs)
	if block == nil {
		return nil
	}

	var specs []string
	add := func(s string) bool {
		if s != "" {
			specs = append(specs, s)
		}
		return e.maxSpecs <= 0 || len(specs) < e.maxSpecs
	}

	if goquery.NodeName(block) == "table" {
		block.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return true
			}
			return add(CollapseSpace(cells.Eq(0).Text()) + ": " + CollapseSpace(cells.Eq(1).Text()))
		})
		return specs
	}

	items := block.Find("li")
	if items.Length() == 0 {
		items = block.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return specItemClass.MatchString(s.AttrOr("class", ""))
		})
	}
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		return add(CollapseSpace(item.Text()))
	})
	return specs
}

// tableCharacteristics reads every two-column table row on the page.
func (e *DetailExtractor) tableCharacteristics(page *types.Page) map[string]string {
	root, err := htmlquery.Parse(bytes.NewReader(page.Body))
	if err != nil {
		e.logger.Warn("table scan skipped", "url", page.URL(), "error", err)
		return nil
	}
	rows, err := htmlquery.QueryAll(root, "//table//tr")
	if err != nil {
		return nil
	}

	out := make(map[string]string)
	for _, row := range rows {
		cells, err := htmlquery.QueryAll(row, "./*[self::td or self::th]")
		if err != nil || len(cells) < 2 {
			continue
		}
		key := CollapseSpace(htmlquery.InnerText(cells[0]))
		value := CollapseSpace(htmlquery.InnerText(cells[1]))
		if key != "" && value != "" {
			out[key] = value
		}
	}
	return out
}

// TextLines joins the trimmed text nodes under sel with newlines.
func TextLines(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
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

func resolveAgainst(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
