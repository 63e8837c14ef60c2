package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// Ensure *NoteStore implements storage.VectorSearcher at compile time.
var _ storage.VectorSearcher = (*NoteStore)(nil)

// NearestNotes returns up to limit workspace notes ordered by ascending
// cosine distance from query, restricted to notes with a stored vector and
// excluding the given ids. The ivfflat index on the embedding column
// accelerates the ordering once the table is non-trivial.
func (s *NoteStore) NearestNotes(ctx context.Context, workspaceID string, query []float32, excludeIDs []string, limit int) ([]types.Note, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if len(query) == 0 || limit <= 0 {
		return []types.Note{}, nil
	}
	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteSelectColumns+`
		FROM notes
		WHERE workspace_id = $1
			AND embedding IS NOT NULL
			AND id <> ALL($2)
		ORDER BY embedding <=> $3
		LIMIT $4
	`, workspaceID, pq.Array(excludeIDs), pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: nearest-notes query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notes, err := collectNotes(rows)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []types.Note{}
	}

	return notes, nil
}
