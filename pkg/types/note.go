// Package types defines the core domain types shared across the Notewell
// storage, engine, and API layers.
package types

import "time"

// Note is a single note in a collaborative workspace. Notes are the atomic
// retrieval unit for context assembly: the embedding, its content fingerprint,
// and the last-embedded timestamp live directly on the note.
type Note struct {
	// Core identification fields
	ID          string `json:"id"`                  // Unique identifier
	WorkspaceID string `json:"workspace_id"`        // Owning workspace; all queries are scoped to one
	FolderID    string `json:"folder_id,omitempty"` // Optional parent folder

	// Content
	Title    string `json:"title"`    // Note title, used for lexical matching
	Content  string `json:"content"`  // Note body
	Position int    `json:"position"` // Sort position within the folder

	// Embedding state
	Embedding      []float32  `json:"embedding,omitempty"`        // Vector embedding for semantic search
	ContentHash    string     `json:"content_hash,omitempty"`     // MD5 fingerprint of the embedded text
	LastEmbeddedAt *time.Time `json:"last_embedded_at,omitempty"` // When the embedding was computed (null = never)

	// Timestamps
	CreatedAt time.Time `json:"created_at"` // When the note was created
	UpdatedAt time.Time `json:"updated_at"` // Last content update
}

// Text returns the canonical text representation of the note: the title and
// content joined by a newline. It is the input to both token estimation and
// embedding, so the stored vector always corresponds to Text at embed time.
func (n *Note) Text() string {
	return n.Title + "\n" + n.Content
}

// Stale reports whether the note's embedding is missing or out of date. A
// note edited in the same instant it was embedded is considered fresh; only
// a strictly later update marks it stale.
func (n *Note) Stale() bool {
	if n.LastEmbeddedAt == nil {
		return true
	}
	return n.UpdatedAt.After(*n.LastEmbeddedAt)
}

// Folder groups notes within a workspace into a tree.
type Folder struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	ParentID    string `json:"parent_id,omitempty"` // Empty for top-level folders
	Name        string `json:"name"`
	Position    int    `json:"position"` // Sort position among siblings

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
