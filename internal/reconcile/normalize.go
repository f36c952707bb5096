package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// keySeparator joins the title and author parts of a Key. It is also in the
// stripped punctuation set so it can never appear inside either part.
const keySeparator = "|"

// strippedPunctuation is the fixed set of characters removed during normalization.
const strippedPunctuation = ".,;:!?'\"`()[]{}<>-_/\\|&*#@~^+=%$" + "‘’“”–—…«»"

// Key is the canonical comparison form of a title/author pair.
type Key string

// Normalize canonicalizes a title and author into a Key. Case folding is
// locale independent so keys are identical across environments.
func Normalize(title, author string) Key {
	return Key(normalizeText(title) + keySeparator + normalizeText(author))
}

// normalizeText normalizes text for comparison
func normalizeText(text string) string {
	text = norm.NFKC.String(strings.TrimSpace(text))
	text = cases.Fold().String(text)

	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, text)

	// Collapse whitespace last so stripped separators do not leave double spaces
	return strings.Join(strings.Fields(text), " ")
}

// Title returns the normalized title part.
func (k Key) Title() string {
	title, _, _ := strings.Cut(string(k), keySeparator)
	return title
}

// Author returns the normalized author part.
func (k Key) Author() string {
	_, author, _ := strings.Cut(string(k), keySeparator)
	return author
}

// Tokens returns the whitespace-delimited words of the title followed by
// those of the author.
func (k Key) Tokens() []string {
	return strings.FieldsFunc(string(k), func(r rune) bool {
		return unicode.IsSpace(r) || r == '|'
	})
}
