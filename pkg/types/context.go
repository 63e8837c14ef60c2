package types

// ContextResult is the assembled context payload for one user turn. The
// slices are never nil: an empty stage serializes as an empty array.
type ContextResult struct {
	// CurrentNote is the note the user is looking at, included in full when
	// present. Nil when the request named no current note or it was deleted.
	CurrentNote *Note `json:"current_note,omitempty"`

	// RecentNotes are the session's recently-edited notes that fit the
	// budget, in the caller's order.
	RecentNotes []Note `json:"recent_notes"`

	// LexicalMatches are title matches against the user query, best first.
	LexicalMatches []Note `json:"lexical_matches"`

	// SemanticMatches are vector-search results, nearest first.
	SemanticMatches []Note `json:"semantic_matches"`

	// RelatedNotes is LexicalMatches followed by SemanticMatches, the
	// combined discovery list presented to the model.
	RelatedNotes []Note `json:"related_notes"`

	// TotalTokens is the estimated token cost of everything included.
	TotalTokens int `json:"total_tokens"`
}
