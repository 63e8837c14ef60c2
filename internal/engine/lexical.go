package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/scrypster/notewell/internal/storage"
)

// Lexical matching defaults, shared with the context assembler.
const (
	// DefaultLexicalLimit caps the number of lexical matches returned.
	DefaultLexicalLimit = 5

	// DefaultLexicalThreshold is the minimum Jaccard score for a match.
	DefaultLexicalThreshold = 0.2
)

// Match is a note title that scored against a query.
type Match struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// SimilarOptions configures a lexical similarity query.
type SimilarOptions struct {
	// Query is the free-form text to match titles against.
	Query string

	// WorkspaceID scopes the candidate set. Required.
	WorkspaceID string

	// Limit caps the result count (default: 5).
	Limit int

	// Threshold is the minimum similarity to include (default: 0.2).
	Threshold float64

	// ExcludeIDs removes notes from the candidate set before scoring.
	ExcludeIDs []string
}

// normalize applies the matcher defaults for unset fields.
func (o *SimilarOptions) normalize() {
	if o.Limit <= 0 {
		o.Limit = DefaultLexicalLimit
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultLexicalThreshold
	}
}

// LexicalMatcher scores workspace note titles against a query using Jaccard
// similarity over normalized token sets. It is the fast, literal complement
// to vector search: title-only, no embedding call, no index required.
type LexicalMatcher struct {
	store storage.NoteStore
}

// NewLexicalMatcher creates a lexical matcher over the given store.
func NewLexicalMatcher(store storage.NoteStore) *LexicalMatcher {
	return &LexicalMatcher{store: store}
}

// FindSimilar returns workspace notes whose titles score at least
// opts.Threshold against opts.Query, best first, capped at opts.Limit.
//
// A query that tokenizes to the empty set (empty text, pure stop words or
// punctuation) returns an empty list without touching storage. Ties keep the
// storage fetch order; that tie-break is implementation-defined, not a
// guarantee. Storage failures propagate to the caller.
func (m *LexicalMatcher) FindSimilar(ctx context.Context, opts SimilarOptions) ([]Match, error) {
	if opts.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	opts.normalize()

	queryTokens := Tokenize(opts.Query)
	if len(queryTokens) == 0 {
		return []Match{}, nil
	}

	// Title-only fetch: content is not needed for this pass.
	titles, err := m.store.ListTitles(ctx, opts.WorkspaceID, opts.ExcludeIDs)
	if err != nil {
		return nil, fmt.Errorf("lexical match: %w", err)
	}

	matches := make([]Match, 0, len(titles))
	for _, t := range titles {
		similarity := Jaccard(queryTokens, Tokenize(t.Title))
		if similarity >= opts.Threshold {
			matches = append(matches, Match{ID: t.ID, Title: t.Title, Similarity: similarity})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	return matches, nil
}
