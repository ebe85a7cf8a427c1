// Package slug turns free-text Russian labels into URL-safe identifiers.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// translit maps lowercase Cyrillic letters to their Latin spelling.
// Hard and soft signs map to nothing.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

var lower = cases.Lower(language.Russian)

// Make returns the slug for text. It is total and idempotent:
// Make(Make(s)) == Make(s) for every s.
func Make(text string) string {
	text = lower.String(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if latin, ok := translit[r]; ok {
			b.WriteString(latin)
			continue
		}
		switch {
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}

	// Dropping a rune can leave combinable neighbours behind.
	return collapse(norm.NFC.String(b.String()))
}

// collapse squeezes hyphen runs and trims them from both ends.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevHyphen := true
	for _, r := range s {
		if r == '-' {
			if !prevHyphen {
				b.WriteByte('-')
			}
			prevHyphen = true
			continue
		}
		b.WriteRune(r)
		prevHyphen = false
	}
	return strings.TrimRight(b.String(), "-")
}
