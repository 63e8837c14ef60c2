package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scrypster/notewell/internal/llm"
	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// DefaultStaleBatchLimit caps how many stale notes one refresh pass embeds.
const DefaultStaleBatchLimit = 10

// ContentFingerprint returns the MD5 hex digest of title+"\n"+content.
// It is used purely for change detection between edits and embeddings;
// collision resistance is not security-relevant here.
func ContentFingerprint(title, content string) string {
	sum := md5.Sum([]byte(title + "\n" + content))
	return hex.EncodeToString(sum[:])
}

// IsStale reports whether the note's stored vector no longer reflects its
// content: never embedded, or updated strictly after the last embedding.
func IsStale(note *types.Note) bool {
	return note.Stale()
}

// EmbeddingManager keeps note vectors fresh. It detects stale notes, drives
// batched (re)embedding through the embedding client, and persists vectors
// alongside the fingerprint and timestamp they were computed from.
type EmbeddingManager struct {
	store  storage.NoteStore
	client llm.EmbeddingClient

	// onEmbedded, when set, is invoked once per successfully persisted note.
	onEmbedded func(noteID string)
}

// NewEmbeddingManager creates an embedding manager over the given store and
// embedding client.
func NewEmbeddingManager(store storage.NoteStore, client llm.EmbeddingClient) *EmbeddingManager {
	return &EmbeddingManager{store: store, client: client}
}

// SetOnEmbedded registers a callback fired for each note whose vector was
// persisted. Used to push freshness events to connected UI clients.
func (m *EmbeddingManager) SetOnEmbedded(fn func(noteID string)) {
	m.onEmbedded = fn
}

// ListStale returns notes eligible for re-embedding in the workspace,
// most-recently-updated first, capped at limit.
func (m *EmbeddingManager) ListStale(ctx context.Context, workspaceID string, limit int) ([]types.Note, error) {
	return m.store.ListStale(ctx, workspaceID, limit)
}

// MarkStale clears a note's last-embedded timestamp so the next refresh pass
// re-embeds it. Used when an edit is judged large enough to invalidate the
// stored vector immediately.
func (m *EmbeddingManager) MarkStale(ctx context.Context, noteID string) error {
	if noteID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	return m.store.MarkStale(ctx, noteID)
}

// EmbedBatch embeds all given notes in one embedding call and persists the
// resulting vectors. It returns the number of notes actually persisted.
//
// The embedding call is batched to amortize API latency and fails as a unit:
// on failure the error is logged, nothing is persisted, and 0 is returned.
// Persistence is per-note isolated: the writes run concurrently and one
// failed write does not stop the others, so the returned count reflects only
// notes whose vector, fingerprint and timestamp actually landed.
func (m *EmbeddingManager) EmbedBatch(ctx context.Context, notes []types.Note) int {
	if len(notes) == 0 {
		return 0
	}

	texts := make([]string, len(notes))
	for i := range notes {
		texts[i] = notes[i].Text()
	}

	embeddings, err := m.client.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("engine: batch embedding of %d notes failed: %v", len(notes), err)
		return 0
	}
	if len(embeddings) != len(notes) {
		log.Printf("engine: embedding client returned %d vectors for %d notes", len(embeddings), len(notes))
		return 0
	}

	embeddedAt := time.Now().UTC()
	var persisted atomic.Int64
	var wg sync.WaitGroup

	for i := range notes {
		if len(embeddings[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(note types.Note, vector []float32) {
			defer wg.Done()

			fingerprint := ContentFingerprint(note.Title, note.Content)
			if err := m.store.SaveEmbedding(ctx, note.ID, vector, fingerprint, embeddedAt); err != nil {
				log.Printf("engine: failed to persist embedding for note %s: %v", note.ID, err)
				return
			}

			persisted.Add(1)
			if m.onEmbedded != nil {
				m.onEmbedded(note.ID)
			}
		}(notes[i], embeddings[i])
	}

	wg.Wait()
	return int(persisted.Load())
}

// RefreshWorkspace embeds up to limit stale notes in the workspace and
// returns the number persisted. A limit <= 0 uses DefaultStaleBatchLimit.
// Storage failures listing stale notes propagate; embedding failures degrade
// to a zero count per EmbedBatch.
func (m *EmbeddingManager) RefreshWorkspace(ctx context.Context, workspaceID string, limit int) (int, error) {
	if workspaceID == "" {
		return 0, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultStaleBatchLimit
	}

	stale, err := m.store.ListStale(ctx, workspaceID, limit)
	if err != nil {
		return 0, fmt.Errorf("refresh workspace %s: %w", workspaceID, err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	return m.EmbedBatch(ctx, stale), nil
}

// EmbedQuery embeds a single text (batch of one). Used for query-side
// embedding in search and context assembly.
func (m *EmbeddingManager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.client.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding client returned no vector for query")
	}
	return vectors[0], nil
}
