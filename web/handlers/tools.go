package handlers

import (
	"context"
	"net/http"

	"github.com/scrypster/notewell/internal/api/tools"
)

// toolDispatcher is the subset of tools.Dispatcher used by the handler.
type toolDispatcher interface {
	Dispatch(ctx context.Context, req tools.Request) (interface{}, error)
}

// ToolsHandler serves the assistant tool endpoint.
type ToolsHandler struct {
	dispatcher toolDispatcher
}

// NewToolsHandler creates a ToolsHandler.
func NewToolsHandler(dispatcher toolDispatcher) *ToolsHandler {
	return &ToolsHandler{dispatcher: dispatcher}
}

// Dispatch handles POST /api/tools. The body is a tools.Request envelope;
// the response shape depends on the tool invoked.
func (h *ToolsHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req tools.Request
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
