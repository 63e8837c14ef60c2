// Package tools implements the typed assistant tool layer: a closed set of
// tool requests dispatched over note storage, validated strictly at the
// boundary so malformed assistant output fails fast instead of half-working.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/notewell/internal/engine"
	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

const defaultSearchLimit = 5

// Dispatcher routes tool requests to their handlers. All tools are
// workspace-scoped through their arguments.
type Dispatcher struct {
	notes    storage.NoteStore
	folders  storage.FolderStore
	vectors  storage.VectorSearcher
	matcher  *engine.LexicalMatcher
	embedder *engine.EmbeddingManager
}

// NewDispatcher creates a tool dispatcher. vectors and embedder may be nil;
// search_notes then always uses lexical ranking and create_note leaves new
// notes stale.
func NewDispatcher(notes storage.NoteStore, folders storage.FolderStore, vectors storage.VectorSearcher, embedder *engine.EmbeddingManager) *Dispatcher {
	return &Dispatcher{
		notes:    notes,
		folders:  folders,
		vectors:  vectors,
		matcher:  engine.NewLexicalMatcher(notes),
		embedder: embedder,
	}
}

// Dispatch validates and executes one tool request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Tool {
	case "search_notes":
		var args SearchArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return d.searchNotes(ctx, args)
	case "read_note":
		var args ReadArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return d.readNote(ctx, args)
	case "create_note":
		var args CreateArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return d.createNote(ctx, args)
	case "list_workspace":
		var args ListArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return d.listWorkspace(ctx, args)
	case "":
		return nil, fmt.Errorf("%w: tool name is required", storage.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", storage.ErrInvalidInput, req.Tool)
	}
}

// searchNotes ranks workspace notes against the query: vector ranking when a
// query embedding is available, lexical title ranking otherwise.
func (d *Dispatcher) searchNotes(ctx context.Context, args SearchArgs) (*SearchResult, error) {
	if args.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", storage.ErrInvalidInput)
	}
	if args.Query == "" {
		return nil, fmt.Errorf("%w: query is required", storage.ErrInvalidInput)
	}
	limit := args.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	if d.embedder != nil && d.vectors != nil {
		vector, err := d.embedder.EmbedQuery(ctx, args.Query)
		if err == nil {
			notes, err := d.vectors.NearestNotes(ctx, args.WorkspaceID, vector, nil, limit)
			if err != nil {
				return nil, fmt.Errorf("tools: vector search: %w", err)
			}
			return &SearchResult{Notes: notes, Mode: "semantic"}, nil
		}
		log.Printf("tools: query embedding failed, falling back to lexical search: %v", err)
	}

	matches, err := d.matcher.FindSimilar(ctx, engine.SimilarOptions{
		Query:       args.Query,
		WorkspaceID: args.WorkspaceID,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("tools: lexical search: %w", err)
	}

	notes := []types.Note{}
	if len(matches) > 0 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		notes, err = d.notes.GetMany(ctx, args.WorkspaceID, ids, limit)
		if err != nil {
			return nil, fmt.Errorf("tools: lexical search content: %w", err)
		}
	}

	return &SearchResult{Notes: notes, Mode: "lexical"}, nil
}

func (d *Dispatcher) readNote(ctx context.Context, args ReadArgs) (*ReadResult, error) {
	if args.NoteID == "" {
		return nil, fmt.Errorf("%w: note_id is required", storage.ErrInvalidInput)
	}

	note, err := d.notes.Get(ctx, args.NoteID)
	if err != nil {
		return nil, err
	}

	return &ReadResult{Note: note}, nil
}

// createNote inserts a note and immediately tries to embed it. The embedding
// step is best-effort; a failure leaves the note stale for the next batch
// pass rather than failing the create.
func (d *Dispatcher) createNote(ctx context.Context, args CreateArgs) (*CreateResult, error) {
	if args.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", storage.ErrInvalidInput)
	}
	if args.Title == "" && args.Content == "" {
		return nil, fmt.Errorf("%w: a title or content is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	note := &types.Note{
		ID:          uuid.New().String(),
		WorkspaceID: args.WorkspaceID,
		FolderID:    args.FolderID,
		Title:       args.Title,
		Content:     args.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.notes.Store(ctx, note); err != nil {
		return nil, fmt.Errorf("tools: create note: %w", err)
	}

	embedded := false
	if d.embedder != nil {
		embedded = d.embedder.EmbedBatch(ctx, []types.Note{*note}) == 1
	}

	stored, err := d.notes.Get(ctx, note.ID)
	if err != nil {
		return nil, fmt.Errorf("tools: reload created note: %w", err)
	}

	return &CreateResult{Note: stored, Embedded: embedded}, nil
}

func (d *Dispatcher) listWorkspace(ctx context.Context, args ListArgs) (*ListResult, error) {
	if args.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", storage.ErrInvalidInput)
	}

	notes, err := d.notes.List(ctx, args.WorkspaceID, storage.ListOptions{Limit: args.Limit, Offset: args.Offset})
	if err != nil {
		return nil, fmt.Errorf("tools: list notes: %w", err)
	}

	folders := []types.Folder{}
	if d.folders != nil {
		folders, err = d.folders.ListByWorkspace(ctx, args.WorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("tools: list folders: %w", err)
		}
	}

	return &ListResult{Notes: notes, Folders: folders}, nil
}

// decodeArgs decodes tool arguments strictly: unknown fields and trailing
// data are errors, surfaced as ErrInvalidInput so HTTP callers map them to
// 400 responses.
func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: tool arguments are required", storage.ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid tool arguments: %v", storage.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after tool arguments", storage.ErrInvalidInput)
	}

	return nil
}
