package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

const (
	// DefaultMaxTokens is the context budget when the caller doesn't set one.
	DefaultMaxTokens = 50_000

	// recentNotesLimit caps how many recently-edited notes are considered.
	recentNotesLimit = 5

	// semanticMatchLimit caps vector-search results.
	semanticMatchLimit = 3

	// semanticBudgetReserve skips vector search once this fraction of the
	// budget is spent, favoring the recency and lexical signals when the
	// budget is tight. A heuristic prioritization, not a hard guarantee.
	semanticBudgetReserve = 0.8
)

// ContextRequest describes one context-assembly turn.
type ContextRequest struct {
	// WorkspaceID scopes all retrieval. Required.
	WorkspaceID string `json:"workspace_id"`

	// CurrentNoteID is the note the user is looking at, if any. Always
	// included in full when present.
	CurrentNoteID string `json:"current_note_id,omitempty"`

	// RecentNoteIDs are the session's recently-edited notes, most relevant
	// first. Owned by the caller's session tracking; the engine never reads
	// recents from shared state.
	RecentNoteIDs []string `json:"recent_note_ids,omitempty"`

	// UserQuery is the user's message, used for lexical and vector matching.
	UserQuery string `json:"user_query"`

	// MaxTokens is the estimated-token budget (default: 50000).
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ContextAssembler builds a ranked, deduplicated, budget-limited context
// payload for one user turn by sequencing four retrieval sources (current
// note, recents, lexical matches, vector matches) over a shared exclusion
// set and a shared, shrinking token budget.
type ContextAssembler struct {
	notes    storage.NoteStore
	vectors  storage.VectorSearcher
	matcher  *LexicalMatcher
	embedder *EmbeddingManager
	estimate TokenEstimator
}

// NewContextAssembler creates a context assembler. vectors may be the same
// value as the note store when the backend implements both interfaces.
// embedder may be nil, in which case the semantic stage is always skipped.
func NewContextAssembler(notes storage.NoteStore, vectors storage.VectorSearcher, embedder *EmbeddingManager) *ContextAssembler {
	return &ContextAssembler{
		notes:    notes,
		vectors:  vectors,
		matcher:  NewLexicalMatcher(notes),
		embedder: embedder,
		estimate: EstimateTokens,
	}
}

// SetTokenEstimator swaps the token estimator (default: EstimateTokens).
func (a *ContextAssembler) SetTokenEstimator(fn TokenEstimator) {
	if fn != nil {
		a.estimate = fn
	}
}

// GatherContext assembles the context payload for one user turn.
//
// The four sources run strictly in sequence: each stage's exclusion set
// depends on the previous stage's picks. The current note is included
// unconditionally, even past the budget: grounding on what the user is
// looking at outranks the ceiling. Every later stage is first-fit in its
// source order and stops at the first candidate that would overflow; cheaper
// candidates behind it are dropped, not reconsidered.
//
// The vector stage is best-effort: an embedding or nearest-neighbor failure
// is logged and yields empty semantic matches, not an error. All other
// storage failures fail the whole request.
func (a *ContextAssembler) GatherContext(ctx context.Context, req ContextRequest) (*types.ContextResult, error) {
	if req.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	result := &types.ContextResult{
		RecentNotes:     []types.Note{},
		LexicalMatches:  []types.Note{},
		SemanticMatches: []types.Note{},
		RelatedNotes:    []types.Note{},
	}
	excludeIDs := make(map[string]struct{})

	// 1. Current note: highest priority, included in full with no budget
	// check. A missing note is not an error; the user may have just
	// deleted it.
	if req.CurrentNoteID != "" {
		note, err := a.notes.Get(ctx, req.CurrentNoteID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// proceed without a current note
		case err != nil:
			return nil, fmt.Errorf("gather context: current note: %w", err)
		case note.WorkspaceID == req.WorkspaceID:
			result.CurrentNote = note
			result.TotalTokens += a.estimate(note.Text())
			excludeIDs[note.ID] = struct{}{}
		}
	}

	// 2. Recently edited notes, first-fit in the caller's order.
	if len(req.RecentNoteIDs) > 0 && result.TotalTokens < maxTokens {
		candidates := filterIDs(req.RecentNoteIDs, excludeIDs)
		notes, err := a.notes.GetMany(ctx, req.WorkspaceID, candidates, recentNotesLimit)
		if err != nil {
			return nil, fmt.Errorf("gather context: recent notes: %w", err)
		}

		result.RecentNotes = a.takeWithinBudget(notes, &result.TotalTokens, maxTokens, excludeIDs)
	}

	// 3. Lexical title matches, first-fit in relevance order.
	if result.TotalTokens < maxTokens {
		matches, err := a.matcher.FindSimilar(ctx, SimilarOptions{
			Query:       req.UserQuery,
			WorkspaceID: req.WorkspaceID,
			Limit:       DefaultLexicalLimit,
			Threshold:   DefaultLexicalThreshold,
			ExcludeIDs:  keys(excludeIDs),
		})
		if err != nil {
			return nil, fmt.Errorf("gather context: lexical matches: %w", err)
		}

		if len(matches) > 0 {
			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = m.ID
			}
			notes, err := a.notes.GetMany(ctx, req.WorkspaceID, ids, 0)
			if err != nil {
				return nil, fmt.Errorf("gather context: lexical match content: %w", err)
			}

			result.LexicalMatches = a.takeWithinBudget(notes, &result.TotalTokens, maxTokens, excludeIDs)
		}
	}

	// 4. Vector matches, only while enough budget is reserved for them.
	if float64(result.TotalTokens) < semanticBudgetReserve*float64(maxTokens) {
		result.SemanticMatches = a.semanticMatches(ctx, req, maxTokens, &result.TotalTokens, excludeIDs)
	}

	// 5. Related = lexical then semantic, each keeping its internal order.
	result.RelatedNotes = make([]types.Note, 0, len(result.LexicalMatches)+len(result.SemanticMatches))
	result.RelatedNotes = append(result.RelatedNotes, result.LexicalMatches...)
	result.RelatedNotes = append(result.RelatedNotes, result.SemanticMatches...)

	return result, nil
}

// semanticMatches runs the best-effort vector stage. Any failure is logged
// and yields an empty list.
func (a *ContextAssembler) semanticMatches(ctx context.Context, req ContextRequest, maxTokens int, totalTokens *int, excludeIDs map[string]struct{}) []types.Note {
	if a.embedder == nil || a.vectors == nil || req.UserQuery == "" {
		return []types.Note{}
	}

	queryVector, err := a.embedder.EmbedQuery(ctx, req.UserQuery)
	if err != nil {
		log.Printf("engine: semantic search skipped, query embedding failed: %v", err)
		return []types.Note{}
	}

	notes, err := a.vectors.NearestNotes(ctx, req.WorkspaceID, queryVector, keys(excludeIDs), semanticMatchLimit)
	if err != nil {
		log.Printf("engine: semantic search skipped, nearest-neighbor query failed: %v", err)
		return []types.Note{}
	}

	return a.takeWithinBudget(notes, totalTokens, maxTokens, excludeIDs)
}

// takeWithinBudget accepts notes in order until one would push totalTokens
// past maxTokens, then stops (first-fit, not best-fit). Accepted notes join
// the exclusion set.
func (a *ContextAssembler) takeWithinBudget(notes []types.Note, totalTokens *int, maxTokens int, excludeIDs map[string]struct{}) []types.Note {
	accepted := []types.Note{}
	for _, note := range notes {
		cost := a.estimate(note.Text())
		if *totalTokens+cost > maxTokens {
			break
		}

		accepted = append(accepted, note)
		*totalTokens += cost
		excludeIDs[note.ID] = struct{}{}
	}
	return accepted
}

// filterIDs returns ids minus the exclusion set, order preserved.
func filterIDs(ids []string, exclude map[string]struct{}) []string {
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := exclude[id]; !ok {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// keys returns the exclusion set as a slice.
func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
