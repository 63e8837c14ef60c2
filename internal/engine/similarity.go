// Package engine implements the context-assembly core of Notewell: text
// tokenization and Jaccard similarity, title-based lexical matching,
// embedding staleness management, and the token-budgeted context assembler
// that combines them with vector search.
package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenSet is a set of normalized word tokens derived from a text string.
// It is scoped to a single similarity computation and never stored.
type TokenSet map[string]struct{}

// stopWords are common English function words excluded from token sets.
// The list is closed and language-specific; matching quality for other
// languages degrades gracefully to plain word overlap.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "may": {}, "might": {}, "must": {}, "can": {}, "this": {},
	"that": {}, "these": {}, "those": {},
}

// Tokenize normalizes text into a set of comparable word tokens: lowercase,
// punctuation collapsed to spaces, split on whitespace runs, tokens of
// length <= 2 and stop words dropped. Duplicates collapse; order is
// irrelevant.
func Tokenize(text string) TokenSet {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	tokens := make(TokenSet)
	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens[word] = struct{}{}
	}

	return tokens
}

// Jaccard computes the Jaccard similarity coefficient between two token
// sets: |A ∩ B| / |A ∪ B|. By convention it is 0 when both sets are empty,
// treating "nothing to compare" as "no similarity" rather than undefined.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}

	intersection := 0
	for token := range smaller {
		if _, ok := larger[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
