package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
)

// HTMLSanitizeMiddleware strips leftover markup tags from text fields. Input
// is already decoded DOM text, so entities and bare comparison signs such
// as "<4%" are left alone.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`</?[a-zA-Z][^<>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(p *catalog.Product) (*catalog.Product, error) {
	p.Name = m.clean(p.Name)
	for _, key := range catalog.TextKeys() {
		f := p.TextField(key)
		*f = m.clean(*f)
	}
	for i, s := range p.Specifications {
		p.Specifications[i] = m.clean(s)
	}
	return p, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	if s == "" {
		return s
	}
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return m.stripRe.ReplaceAllString(s, "")
}

// TrimMiddleware collapses whitespace in the name and specifications and
// trims every text field. Line breaks inside long-form fields are kept.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *catalog.Product) (*catalog.Product, error) {
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	for _, key := range catalog.TextKeys() {
		f := p.TextField(key)
		*f = strings.TrimSpace(*f)
	}

	specs := p.Specifications[:0]
	for _, s := range p.Specifications {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			specs = append(specs, s)
		}
	}
	p.Specifications = specs
	if len(p.Specifications) == 0 {
		p.Specifications = nil
	}

	for k, v := range p.TechnicalCharacteristics {
		tk, tv := strings.TrimSpace(k), strings.TrimSpace(v)
		if tk != k || tv != v {
			delete(p.TechnicalCharacteristics, k)
			if tk != "" && tv != "" {
				p.TechnicalCharacteristics[tk] = tv
			}
		}
	}
	return p, nil
}

// RequiredNameMiddleware drops products whose name is shorter than MinLength
// runes. Empty names are always dropped.
type RequiredNameMiddleware struct {
	MinLength int
}

func (m *RequiredNameMiddleware) Name() string { return "required_name" }

func (m *RequiredNameMiddleware) Process(p *catalog.Product) (*catalog.Product, error) {
	n := utf8.RuneCountInString(strings.TrimSpace(p.Name))
	if n == 0 || n < m.MinLength {
		return nil, nil
	}
	return p, nil
}

// TruncateMiddleware caps the description at MaxDescription runes.
type TruncateMiddleware struct {
	MaxDescription int
}

func (m *TruncateMiddleware) Name() string { return "truncate" }

func (m *TruncateMiddleware) Process(p *catalog.Product) (*catalog.Product, error) {
	if m.MaxDescription <= 0 {
		return p, nil
	}
	if utf8.RuneCountInString(p.Description) > m.MaxDescription {
		p.Description = strings.TrimSpace(string([]rune(p.Description)[:m.MaxDescription]))
	}
	return p, nil
}

// SpecLimitMiddleware keeps at most Max specifications.
type SpecLimitMiddleware struct {
	Max int
}

func (m *SpecLimitMiddleware) Name() string { return "spec_limit" }

func (m *SpecLimitMiddleware) Process(p *catalog.Product) (*catalog.Product, error) {
	if m.Max > 0 && len(p.Specifications) > m.Max {
		p.Specifications = p.Specifications[:m.Max]
	}
	return p, nil
}
