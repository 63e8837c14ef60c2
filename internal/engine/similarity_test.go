package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeNormalizes(t *testing.T) {
	tokens := Tokenize("Hello, World! Meeting-Notes (draft)")

	assert.Contains(t, tokens, "hello")
	assert.Contains(t, tokens, "world")
	assert.Contains(t, tokens, "meeting")
	assert.Contains(t, tokens, "notes")
	assert.Contains(t, tokens, "draft")
	assert.Len(t, tokens, 5)
}

func TestTokenizeDropsShortAndStopWords(t *testing.T) {
	tokens := Tokenize("the quick ox is on a hill by me")

	// "the", "is", "on", "a", "by" are stop words; "ox", "me" are too short.
	assert.Equal(t, TokenSet{"quick": {}, "hill": {}}, tokens)
}

func TestTokenizeEmptyAndPunctuation(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("!!! ... ???"))
	assert.Empty(t, Tokenize("the and or"))
}

func TestTokenizeIdempotentOnNormalizedInput(t *testing.T) {
	first := Tokenize("quarterly roadmap planning")

	// Re-tokenizing the tokens themselves yields the same set.
	for token := range first {
		again := Tokenize(token)
		assert.Equal(t, TokenSet{token: {}}, again)
	}
}

func TestTokenizeCollapsesDuplicates(t *testing.T) {
	tokens := Tokenize("notes notes NOTES Notes")
	assert.Equal(t, TokenSet{"notes": {}}, tokens)
}

func TestJaccardIdentity(t *testing.T) {
	set := Tokenize("quarterly roadmap planning")
	assert.Equal(t, 1.0, Jaccard(set, set))
}

func TestJaccardDisjoint(t *testing.T) {
	a := Tokenize("quarterly roadmap")
	b := Tokenize("grocery list")
	assert.Equal(t, 0.0, Jaccard(a, b))
}

func TestJaccardBothEmpty(t *testing.T) {
	// Convention: nothing to compare means no similarity, not NaN.
	assert.Equal(t, 0.0, Jaccard(TokenSet{}, TokenSet{}))
}

func TestJaccardOneEmpty(t *testing.T) {
	a := Tokenize("quarterly roadmap")
	assert.Equal(t, 0.0, Jaccard(a, TokenSet{}))
	assert.Equal(t, 0.0, Jaccard(TokenSet{}, a))
}

func TestJaccardPartialOverlap(t *testing.T) {
	a := TokenSet{"alpha": {}, "beta": {}, "gamma": {}}
	b := TokenSet{"beta": {}, "gamma": {}, "delta": {}}

	// intersection 2, union 4
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)
}

func TestJaccardSymmetric(t *testing.T) {
	a := Tokenize("project kickoff meeting notes")
	b := Tokenize("meeting agenda")
	assert.Equal(t, Jaccard(a, b), Jaccard(b, a))
}
