package handlers

import (
	"context"
	"net/http"

	"github.com/scrypster/notewell/internal/engine"
	"github.com/scrypster/notewell/pkg/types"
)

// contextGatherer is the subset of engine.ContextAssembler used by the
// handler. Using an interface keeps the handler testable without storage.
type contextGatherer interface {
	GatherContext(ctx context.Context, req engine.ContextRequest) (*types.ContextResult, error)
}

// ContextHandler serves the context-assembly endpoint.
type ContextHandler struct {
	assembler contextGatherer
}

// NewContextHandler creates a ContextHandler.
func NewContextHandler(assembler contextGatherer) *ContextHandler {
	return &ContextHandler{assembler: assembler}
}

// Gather handles POST /api/context. The request body is an
// engine.ContextRequest; the response is the assembled types.ContextResult.
func (h *ContextHandler) Gather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req engine.ContextRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	result, err := h.assembler.GatherContext(r.Context(), req)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
