package parser

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heading maps a section heading keyword to the product field it fills.
type Heading struct {
	Keyword string
	Field   string
}

// FieldTechnical is the section parsed into label/value pairs.
const FieldTechnical = "technical_characteristics"

// DefaultHeadings is the heading table for product detail pages.
var DefaultHeadings = []Heading{
	{"О товаре", "description"},
	{"Применение", "application"},
	{"Форма поставки", "delivery_form"},
	{"Срок годности", "shelf_life"},
	{"Техника безопасности", "safety"},
	{"Подготовка основания", "preparation"},
	{"Способ приготовления", "preparation_method"},
	{"Способ применения", "application_method"},
	{"Расход", "consumption"},
	{"Рекомендации", "recommendations"},
	{"ТУ", "tu"},
	{"Технические характеристики", FieldTechnical},
	{"Состав", "composition"},
	{"Внешний вид", "appearance"},
}

// Segments is the outcome of segmenting one text block.
type Segments struct {
	// Fields holds prose sections by field key. Empty sections are omitted.
	Fields map[string]string

	// Characteristics holds the parsed technical characteristics section.
	Characteristics map[string]string

	// Matched reports whether any heading was recognized.
	Matched bool
}

// Segmenter splits page text into named sections by line-prefix headings.
type Segmenter struct {
	headings         []Heading
	maxHeadingLength int
	maxDescription   int
}

// NewSegmenter creates a segmenter. Headings are tried longest keyword first.
// maxHeadingLength bounds the rune length of a heading line and
// maxDescription bounds the unsegmented description fallback.
func NewSegmenter(headings []Heading, maxHeadingLength, maxDescription int) *Segmenter {
	sorted := append([]Heading(nil), headings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Keyword) > utf8.RuneCountInString(sorted[j].Keyword)
	})
	return &Segmenter{
		headings:         sorted,
		maxHeadingLength: maxHeadingLength,
		maxDescription:   maxDescription,
	}
}

// Segment partitions text. Lines before the first heading belong to no
// section. Text after a colon on a heading line opens the section. When no
// heading matches, the whole text (capped) becomes the description.
func (s *Segmenter) Segment(text string) Segments {
	out := Segments{Fields: make(map[string]string)}

	var (
		current string
		acc     []string
	)
	flush := func() {
		if current == "" {
			return
		}
		value := strings.TrimSpace(strings.Join(acc, "\n"))
		if value == "" {
			return
		}
		if current == FieldTechnical {
			out.Characteristics = ParseCharacteristics(value)
			return
		}
		out.Fields[current] = value
	}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, line)

		if field, inline, ok := s.heading(line); ok {
			flush()
			out.Matched = true
			current = field
			acc = acc[:0]
			if inline != "" {
				acc = append(acc, inline)
			}
			continue
		}
		if current != "" {
			acc = append(acc, line)
		}
	}
	flush()

	if !out.Matched && out.Fields["description"] == "" && len(lines) > 0 {
		out.Fields["description"] = Truncate(strings.Join(lines, "\n"), s.maxDescription)
	}
	return out
}

// heading reports whether line opens a section, returning its field and any
// value following a colon on the same line.
func (s *Segmenter) heading(line string) (field, inline string, ok bool) {
	if utf8.RuneCountInString(line) >= s.maxHeadingLength {
		return "", "", false
	}
	for _, h := range s.headings {
		if !strings.HasPrefix(line, h.Keyword) {
			continue
		}
		rest := line[len(h.Keyword):]
		if r, _ := utf8.DecodeRuneInString(rest); rest != "" && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			// "Составы..." is not the "Состав" heading.
			continue
		}
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, ":") {
			inline = strings.TrimSpace(rest[1:])
		}
		return h.Field, inline, true
	}
	return "", "", false
}

// ParseCharacteristics reads "label: value" lines, splitting on the first
// colon. Lines with an empty label or value are dropped.
func ParseCharacteristics(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		label, value = strings.TrimSpace(label), strings.TrimSpace(value)
		if label != "" && value != "" {
			out[label] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
