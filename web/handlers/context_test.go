package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/notewell/internal/engine"
	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

type stubGatherer struct {
	result  *types.ContextResult
	err     error
	lastReq engine.ContextRequest
}

func (s *stubGatherer) GatherContext(ctx context.Context, req engine.ContextRequest) (*types.ContextResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestContextGather(t *testing.T) {
	gatherer := &stubGatherer{
		result: &types.ContextResult{
			CurrentNote: &types.Note{ID: "cur", WorkspaceID: "ws1", Title: "Now"},
			TotalTokens: 42,
		},
	}
	handler := NewContextHandler(gatherer)

	body := `{"workspace_id":"ws1","current_note_id":"cur","user_query":"roadmap"}`
	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Gather(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws1", gatherer.lastReq.WorkspaceID)
	assert.Equal(t, "roadmap", gatherer.lastReq.UserQuery)

	var result types.ContextResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 42, result.TotalTokens)
	require.NotNil(t, result.CurrentNote)
	assert.Equal(t, "cur", result.CurrentNote.ID)
}

func TestContextGatherInvalidInput(t *testing.T) {
	gatherer := &stubGatherer{err: fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)}
	handler := NewContextHandler(gatherer)

	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Gather(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContextGatherInternalError(t *testing.T) {
	gatherer := &stubGatherer{err: errors.New("database gone")}
	handler := NewContextHandler(gatherer)

	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{"workspace_id":"ws1"}`))
	rec := httptest.NewRecorder()
	handler.Gather(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestContextGatherBadJSON(t *testing.T) {
	handler := NewContextHandler(&stubGatherer{})

	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handler.Gather(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContextGatherMethodNotAllowed(t *testing.T) {
	handler := NewContextHandler(&stubGatherer{})

	req := httptest.NewRequest(http.MethodGet, "/api/context", nil)
	rec := httptest.NewRecorder()
	handler.Gather(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
