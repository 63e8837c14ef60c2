package handlers

import (
	"context"
	"net/http"
)

// embeddingService is the subset of engine.EmbeddingManager used by the
// handler.
type embeddingService interface {
	RefreshWorkspace(ctx context.Context, workspaceID string, limit int) (int, error)
	MarkStale(ctx context.Context, noteID string) error
}

// broadcaster pushes an event to connected websocket clients.
type broadcaster interface {
	Broadcast(message interface{})
}

// EmbeddingsHandler serves the embedding maintenance endpoints.
type EmbeddingsHandler struct {
	embedder   embeddingService
	events     broadcaster
	batchLimit int
}

// NewEmbeddingsHandler creates an EmbeddingsHandler. events may be nil when
// no websocket hub is running. batchLimit caps how many stale notes one
// batch call re-embeds; values <= 0 fall back to 10.
func NewEmbeddingsHandler(embedder embeddingService, events broadcaster, batchLimit int) *EmbeddingsHandler {
	if batchLimit <= 0 {
		batchLimit = 10
	}
	return &EmbeddingsHandler{embedder: embedder, events: events, batchLimit: batchLimit}
}

// BatchRequest is the request body for POST /api/embeddings/batch.
type BatchRequest struct {
	WorkspaceID string `json:"workspaceId"`
}

// BatchResponse is the response body for POST /api/embeddings/batch.
type BatchResponse struct {
	Processed int `json:"processed"`
}

// Batch handles POST /api/embeddings/batch: re-embed up to batchLimit stale
// notes in the workspace and report how many were actually persisted.
func (h *EmbeddingsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req BatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	processed, err := h.embedder.RefreshWorkspace(r.Context(), req.WorkspaceID, h.batchLimit)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, BatchResponse{Processed: processed})
}

// MarkStaleRequest is the request body for POST /api/embeddings/mark-stale.
type MarkStaleRequest struct {
	NoteID string `json:"noteId"`
}

// MarkStaleResponse is the response body for POST /api/embeddings/mark-stale.
type MarkStaleResponse struct {
	Success bool `json:"success"`
}

// MarkStale handles POST /api/embeddings/mark-stale: flag one note for
// re-embedding on the next batch pass.
func (h *EmbeddingsHandler) MarkStale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req MarkStaleRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	if err := h.embedder.MarkStale(r.Context(), req.NoteID); err != nil {
		respondStorageError(w, err)
		return
	}

	if h.events != nil {
		h.events.Broadcast(NewNoteEvent(EventNoteMarkedStale, req.NoteID))
	}

	respondJSON(w, http.StatusOK, MarkStaleResponse{Success: true})
}
