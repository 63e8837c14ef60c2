package tools

import (
	"encoding/json"

	"github.com/scrypster/notewell/pkg/types"
)

// Request is the envelope for one tool invocation. Args is decoded strictly
// against the tool's own argument type; unknown fields are rejected.
type Request struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// SearchArgs are the arguments for the search_notes tool.
type SearchArgs struct {
	WorkspaceID string `json:"workspace_id"`
	Query       string `json:"query"`
	Limit       int    `json:"limit,omitempty"`
}

// SearchResult is the response for the search_notes tool.
type SearchResult struct {
	Notes []types.Note `json:"notes"`
	// Mode reports which ranking produced the results: "semantic" when the
	// query embedding succeeded, "lexical" when it fell back to title match.
	Mode string `json:"mode"`
}

// ReadArgs are the arguments for the read_note tool.
type ReadArgs struct {
	NoteID string `json:"note_id"`
}

// ReadResult is the response for the read_note tool.
type ReadResult struct {
	Note *types.Note `json:"note"`
}

// CreateArgs are the arguments for the create_note tool.
type CreateArgs struct {
	WorkspaceID string `json:"workspace_id"`
	FolderID    string `json:"folder_id,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// CreateResult is the response for the create_note tool.
type CreateResult struct {
	Note *types.Note `json:"note"`
	// Embedded reports whether the immediate best-effort embedding pass
	// succeeded; false leaves the note stale for the next batch.
	Embedded bool `json:"embedded"`
}

// ListArgs are the arguments for the list_workspace tool.
type ListArgs struct {
	WorkspaceID string `json:"workspace_id"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// ListResult is the response for the list_workspace tool.
type ListResult struct {
	Notes   []types.Note   `json:"notes"`
	Folders []types.Folder `json:"folders"`
}
