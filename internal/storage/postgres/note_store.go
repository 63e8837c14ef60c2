// Package postgres implements the Notewell storage interfaces on PostgreSQL
// with the pgvector extension. Embeddings live in a vector column on the
// notes table and nearest-neighbor queries use the cosine distance operator,
// accelerated by an ivfflat index.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// schemaTemplate is the embedded schema applied on open. The embedding
// dimension must match the configured embedding model's output.
const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS notes (
	id               TEXT PRIMARY KEY,
	workspace_id     TEXT NOT NULL,
	folder_id        TEXT,
	title            TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL DEFAULT 0,
	embedding        vector(%d),
	content_hash     TEXT,
	last_embedded_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_workspace ON notes(workspace_id);
CREATE INDEX IF NOT EXISTS idx_notes_workspace_updated ON notes(workspace_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_notes_embedding_cosine ON notes
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS folders (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	parent_id    TEXT,
	name         TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_folders_workspace ON folders(workspace_id);
`

// noteSelectColumns is the canonical SELECT column list for the notes table.
// It must match the scan order in scanNote.
const noteSelectColumns = `
	id, workspace_id, folder_id, title, content, position,
	embedding, content_hash, last_embedded_at, created_at, updated_at
`

// NoteStore implements storage.NoteStore and storage.VectorSearcher on
// PostgreSQL with pgvector.
type NoteStore struct {
	db        *sql.DB
	dimension int
}

// NewNoteStore connects to PostgreSQL via dsn, ensures the pgvector extension
// and schema exist, and returns a ready store. dimension is the embedding
// vector size (e.g. 768 for nomic-embed-text).
func NewNoteStore(dsn string, dimension int) (*NoteStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf(schemaTemplate, dimension)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	return &NoteStore{db: db, dimension: dimension}, nil
}

// GetDB exposes the underlying connection so companion stores (folders) can
// share it.
func (s *NoteStore) GetDB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *NoteStore) Close() error {
	return s.db.Close()
}

// Store creates or updates a note (upsert semantics).
func (s *NoteStore) Store(ctx context.Context, note *types.Note) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	if note.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, workspace_id, folder_id, title, content, position,
			embedding, content_hash, last_embedded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			folder_id = excluded.folder_id,
			title = excluded.title,
			content = excluded.content,
			position = excluded.position,
			updated_at = excluded.updated_at
	`, note.ID, note.WorkspaceID, nullString(note.FolderID), note.Title, note.Content,
		note.Position, vectorOrNil(note.Embedding), nullString(note.ContentHash),
		nullTime(note.LastEmbeddedAt), note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to store note %s: %w", note.ID, err)
	}

	return nil
}

// Get retrieves a note by ID including content and embedding.
func (s *NoteStore) Get(ctx context.Context, id string) (*types.Note, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+noteSelectColumns+` FROM notes WHERE id = $1`, id)
	note, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get note %s: %w", id, err)
	}

	return note, nil
}

// GetMany retrieves full notes by ID within a workspace, preserving the order
// of ids. Unknown ids are silently skipped.
func (s *NoteStore) GetMany(ctx context.Context, workspaceID string, ids []string, limit int) ([]types.Note, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if len(ids) == 0 {
		return []types.Note{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteSelectColumns+`
		FROM notes
		WHERE workspace_id = $1 AND id = ANY($2)
	`, workspaceID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]types.Note)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan note: %w", err)
		}
		byID[note.ID] = *note
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	notes := make([]types.Note, 0, len(byID))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			notes = append(notes, note)
			if limit > 0 && len(notes) >= limit {
				break
			}
		}
	}

	return notes, nil
}

// ListTitles returns id+title pairs for every note in the workspace excluding
// the given ids.
func (s *NoteStore) ListTitles(ctx context.Context, workspaceID string, excludeIDs []string) ([]storage.NoteTitle, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title
		FROM notes
		WHERE workspace_id = $1 AND id <> ALL($2)
		ORDER BY updated_at DESC
	`, workspaceID, pq.Array(excludeIDs))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []storage.NoteTitle
	for rows.Next() {
		var t storage.NoteTitle
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return titles, nil
}

// List retrieves full notes in a workspace ordered by update time descending.
func (s *NoteStore) List(ctx context.Context, workspaceID string, opts storage.ListOptions) ([]types.Note, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	opts.Normalize()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteSelectColumns+`
		FROM notes
		WHERE workspace_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, workspaceID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectNotes(rows)
}

// ListStale returns notes never embedded or updated after their last
// embedding, most-recently-updated first.
func (s *NoteStore) ListStale(ctx context.Context, workspaceID string, limit int) ([]types.Note, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteSelectColumns+`
		FROM notes
		WHERE workspace_id = $1
			AND (last_embedded_at IS NULL OR updated_at > last_embedded_at)
		ORDER BY updated_at DESC
		LIMIT $2
	`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list stale notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectNotes(rows)
}

// SaveEmbedding persists a note's vector, fingerprint and embedded-at
// timestamp in a single statement.
func (s *NoteStore) SaveEmbedding(ctx context.Context, id string, embedding []float32, contentHash string, embeddedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if len(embedding) != s.dimension {
		return fmt.Errorf("%w: embedding length (%d) does not match dimension (%d)",
			storage.ErrInvalidInput, len(embedding), s.dimension)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET embedding = $1, content_hash = $2, last_embedded_at = $3
		WHERE id = $4
	`, pgvector.NewVector(embedding), contentHash, embeddedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: failed to save embedding for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// MarkStale clears a note's last-embedded timestamp.
func (s *NoteStore) MarkStale(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE notes SET last_embedded_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to mark note %s stale: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Delete removes a note permanently, vector included.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete note %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// collectNotes reads all remaining rows into a slice.
func collectNotes(rows *sql.Rows) ([]types.Note, error) {
	var notes []types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan note: %w", err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}
	return notes, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNote scans a single row in noteSelectColumns order.
func scanNote(r rowScanner) (*types.Note, error) {
	var note types.Note
	var folderID, contentHash sql.NullString
	var embedding pgvector.Vector
	var hasEmbedding bool
	var lastEmbeddedAt sql.NullTime

	err := r.Scan(
		&note.ID,
		&note.WorkspaceID,
		&folderID,
		&note.Title,
		&note.Content,
		&note.Position,
		nullVector{&embedding, &hasEmbedding},
		&contentHash,
		&lastEmbeddedAt,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if folderID.Valid {
		note.FolderID = folderID.String
	}
	if contentHash.Valid {
		note.ContentHash = contentHash.String
	}
	if lastEmbeddedAt.Valid {
		t := lastEmbeddedAt.Time
		note.LastEmbeddedAt = &t
	}
	if hasEmbedding {
		note.Embedding = embedding.Slice()
	}

	return &note, nil
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   *pgvector.Vector
	valid *bool
}

func (n nullVector) Scan(src interface{}) error {
	if src == nil {
		*n.valid = false
		return nil
	}
	*n.valid = true
	return n.vec.Scan(src)
}

// vectorOrNil maps an empty vector to SQL NULL.
func vectorOrNil(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
