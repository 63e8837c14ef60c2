// Package sqlite implements the Notewell storage interfaces on an embedded
// SQLite database via modernc.org/sqlite (pure Go, no cgo).
//
// Embeddings are stored as little-endian float32 BLOBs on the note row and
// ranked in Go memory for nearest-neighbor queries; for large workspaces the
// Postgres backend with pgvector indexing is the better fit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// Schema is the embedded schema applied on open. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS notes (
	id               TEXT PRIMARY KEY,
	workspace_id     TEXT NOT NULL,
	folder_id        TEXT,
	title            TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL DEFAULT 0,
	embedding        BLOB,
	content_hash     TEXT,
	last_embedded_at TIMESTAMP,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_workspace ON notes(workspace_id);
CREATE INDEX IF NOT EXISTS idx_notes_workspace_updated ON notes(workspace_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS folders (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	parent_id    TEXT,
	name         TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_workspace ON folders(workspace_id);
`

// noteSelectColumns is the canonical SELECT column list for the notes table.
// It must match the scan order in scanNoteRow.
const noteSelectColumns = `
	id, workspace_id, folder_id, title, content, position,
	embedding, content_hash, last_embedded_at, created_at, updated_at
`

// NoteStore implements storage.NoteStore and storage.VectorSearcher on SQLite.
type NoteStore struct {
	db *sql.DB
}

// NewNoteStore opens (or creates) a SQLite database at dsn and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func NewNoteStore(dsn string) (*NoteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load; WAL
	// mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to set pragmas: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &NoteStore{db: db}, nil
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

// Store creates or updates a note (upsert semantics). CreatedAt/UpdatedAt are
// populated when zero.
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			folder_id = excluded.folder_id,
			title = excluded.title,
			content = excluded.content,
			position = excluded.position,
			updated_at = excluded.updated_at
	`, note.ID, note.WorkspaceID, nullString(note.FolderID), note.Title, note.Content,
		note.Position, serializeEmbedding(note.Embedding), nullString(note.ContentHash),
		nullTime(note.LastEmbeddedAt), note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store note %s: %w", note.ID, err)
	}

	return nil
}

// Get retrieves a note by ID including content and embedding.
func (s *NoteStore) Get(ctx context.Context, id string) (*types.Note, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+noteSelectColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNoteRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to get note %s: %w", id, err)
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

	query := `SELECT ` + noteSelectColumns + ` FROM notes WHERE workspace_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, workspaceID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]types.Note)
	for rows.Next() {
		note, err := scanNoteRows(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan note: %w", err)
		}
		byID[note.ID] = *note
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}

	// Reorder to match the caller's id order.
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
// the given ids. Content is not fetched.
func (s *NoteStore) ListTitles(ctx context.Context, workspaceID string, excludeIDs []string) ([]storage.NoteTitle, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}

	query := `SELECT id, title FROM notes WHERE workspace_id = ?`
	args := []interface{}{workspaceID}
	if len(excludeIDs) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []storage.NoteTitle
	for rows.Next() {
		var t storage.NoteTitle
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
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
		WHERE workspace_id = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, workspaceID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list notes: %w", err)
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
		WHERE workspace_id = ?
			AND (last_embedded_at IS NULL OR updated_at > last_embedded_at)
		ORDER BY updated_at DESC
		LIMIT ?
	`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list stale notes: %w", err)
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

	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET embedding = ?, content_hash = ?, last_embedded_at = ?
		WHERE id = ?
	`, serializeEmbedding(embedding), contentHash, embeddedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save embedding for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
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

	result, err := s.db.ExecContext(ctx, `UPDATE notes SET last_embedded_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to mark note %s stale: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Delete removes a note permanently. The embedding lives on the note row, so
// it is removed with it.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete note %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
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
		note, err := scanNoteRows(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan note: %w", err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}
	return notes, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNoteRow(row *sql.Row) (*types.Note, error)   { return scanNote(row) }
func scanNoteRows(rows *sql.Rows) (*types.Note, error) { return scanNote(rows) }

// scanNote scans a single row in noteSelectColumns order.
func scanNote(r rowScanner) (*types.Note, error) {
	var note types.Note
	var folderID, contentHash sql.NullString
	var embedding []byte
	var lastEmbeddedAt sql.NullTime

	err := r.Scan(
		&note.ID,
		&note.WorkspaceID,
		&folderID,
		&note.Title,
		&note.Content,
		&note.Position,
		&embedding,
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
	if len(embedding) > 0 {
		vec, err := deserializeEmbedding(embedding)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for note %s: %w", note.ID, err)
		}
		note.Embedding = vec
	}

	return &note, nil
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
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
