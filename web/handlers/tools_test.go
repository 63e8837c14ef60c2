package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/notewell/internal/api/tools"
	"github.com/scrypster/notewell/internal/storage"
)

type stubDispatcher struct {
	result  interface{}
	err     error
	lastReq tools.Request
}

func (s *stubDispatcher) Dispatch(ctx context.Context, req tools.Request) (interface{}, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestToolsDispatch(t *testing.T) {
	dispatcher := &stubDispatcher{result: &tools.ReadResult{}}
	handler := NewToolsHandler(dispatcher)

	body := `{"tool":"read_note","args":{"note_id":"n1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/tools", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "read_note", dispatcher.lastReq.Tool)
	assert.JSONEq(t, `{"note_id":"n1"}`, string(dispatcher.lastReq.Args))
}

func TestToolsDispatchUnknownTool(t *testing.T) {
	dispatcher := &stubDispatcher{err: fmt.Errorf("%w: unknown tool", storage.ErrInvalidInput)}
	handler := NewToolsHandler(dispatcher)

	body := `{"tool":"bogus","args":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/tools", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request", resp.Error)
}

func TestToolsDispatchNotFound(t *testing.T) {
	dispatcher := &stubDispatcher{err: storage.ErrNotFound}
	handler := NewToolsHandler(dispatcher)

	body := `{"tool":"read_note","args":{"note_id":"gone"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/tools", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToolsDispatchBadJSON(t *testing.T) {
	handler := NewToolsHandler(&stubDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/tools", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolsDispatchMethodNotAllowed(t *testing.T) {
	handler := NewToolsHandler(&stubDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
