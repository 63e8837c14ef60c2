// Package storage provides composable storage interfaces for the Notewell
// context engine.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed, allowing the Postgres
// (pgvector) and embedded SQLite backends to be swapped behind the engine.
package storage

import (
	"context"
	"time"

	"github.com/scrypster/notewell/pkg/types"
)

// NoteStore provides note lifecycle and retrieval operations.
// All list-style queries are scoped to a single workspace; cross-workspace
// reads are never performed by this layer.
type NoteStore interface {
	// Store creates or updates a note (upsert semantics).
	Store(ctx context.Context, note *types.Note) error

	// Get retrieves a note by ID, including its content.
	// Returns ErrNotFound if the note doesn't exist.
	Get(ctx context.Context, id string) (*types.Note, error)

	// GetMany retrieves full notes by ID within a workspace, preserving the
	// order of ids. Unknown ids are skipped, not errors. limit caps the
	// number of rows returned (0 = no cap).
	GetMany(ctx context.Context, workspaceID string, ids []string, limit int) ([]types.Note, error)

	// ListTitles returns id+title pairs for every note in the workspace,
	// excluding the given ids. Content is deliberately not fetched; this
	// backs the title-only lexical matching pass.
	ListTitles(ctx context.Context, workspaceID string, excludeIDs []string) ([]NoteTitle, error)

	// List retrieves full notes in a workspace with pagination, ordered by
	// update time descending.
	List(ctx context.Context, workspaceID string, opts ListOptions) ([]types.Note, error)

	// ListStale returns notes whose embedding is missing or older than their
	// last update, most-recently-updated first, capped at limit.
	ListStale(ctx context.Context, workspaceID string, limit int) ([]types.Note, error)

	// SaveEmbedding atomically persists a note's vector together with the
	// content fingerprint and last-embedded timestamp it was computed from.
	SaveEmbedding(ctx context.Context, id string, embedding []float32, contentHash string, embeddedAt time.Time) error

	// MarkStale clears a note's last-embedded timestamp, forcing the next
	// batch run to re-embed it. Returns ErrNotFound for unknown ids.
	MarkStale(ctx context.Context, id string) error

	// Delete removes a note permanently. The stored vector lives on the note
	// row, so deletion cascades to it. Returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// VectorSearcher performs nearest-neighbor retrieval over note embeddings.
// Backends without a native vector index (SQLite) rank candidates in memory.
type VectorSearcher interface {
	// NearestNotes returns up to limit notes in the workspace ordered by
	// ascending cosine distance from query, restricted to notes with a
	// non-null vector and excluding the given ids.
	NearestNotes(ctx context.Context, workspaceID string, query []float32, excludeIDs []string, limit int) ([]types.Note, error)
}

// FolderStore provides folder tree persistence. Tree mutation (moves,
// reordering, cycle prevention) happens above this layer.
type FolderStore interface {
	// Store creates or updates a folder (upsert semantics).
	Store(ctx context.Context, folder *types.Folder) error

	// Get retrieves a folder by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*types.Folder, error)

	// ListByWorkspace returns all folders in a workspace ordered by position.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]types.Folder, error)

	// Delete removes a folder. Returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}

// NoteTitle is the projection returned by ListTitles.
type NoteTitle struct {
	ID    string
	Title string
}
