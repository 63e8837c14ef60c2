package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// Ensure *NoteStore implements storage.VectorSearcher at compile time.
var _ storage.VectorSearcher = (*NoteStore)(nil)

// vectorSearchMaxCandidates caps the number of embeddings loaded into memory
// during a nearest-neighbor query. Candidates are selected in recency order
// (newest first) so recently-edited notes are always considered. Typical
// workspaces (< 10k notes) never hit this limit; larger deployments should
// use the Postgres backend for indexed ANN search.
const vectorSearchMaxCandidates = 10_000

// NearestNotes ranks workspace notes by cosine similarity to query and
// returns the top limit, excluding the given ids. Notes without a stored
// vector are never candidates.
func (s *NoteStore) NearestNotes(ctx context.Context, workspaceID string, query []float32, excludeIDs []string, limit int) ([]types.Note, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if len(query) == 0 || limit <= 0 {
		return []types.Note{}, nil
	}

	stmt := `
		SELECT id, embedding
		FROM notes
		WHERE workspace_id = ? AND embedding IS NOT NULL`
	args := []interface{}{workspaceID}
	if len(excludeIDs) > 0 {
		stmt += ` AND id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	stmt += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, vectorSearchMaxCandidates)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		noteID string
		score  float64
	}
	var candidates []scored

	for rows.Next() {
		var noteID string
		var blob []byte
		if err := rows.Scan(&noteID, &blob); err != nil {
			continue
		}
		embedding, err := deserializeEmbedding(blob)
		if err != nil {
			continue // skip corrupt rows rather than failing the search
		}
		candidates = append(candidates, scored{noteID, cosineSimilarity(query, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating embeddings: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	notes := make([]types.Note, 0, len(candidates))
	for _, c := range candidates {
		note, err := s.Get(ctx, c.noteID)
		if err != nil {
			continue
		}
		notes = append(notes, *note)
	}

	return notes, nil
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns 0 for mismatched lengths or zero-magnitude inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// serializeEmbedding converts a float32 slice to little-endian bytes.
// Returns nil for an empty vector so the column stays NULL.
func serializeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}

	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts little-endian bytes back to a float32 slice.
func deserializeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}

	embedding := make([]float32, len(buf)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding, nil
}
