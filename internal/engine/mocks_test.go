package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// mockNoteStore is an in-memory storage.NoteStore with call counters and
// per-note failure injection for persistence writes.
type mockNoteStore struct {
	mu    sync.Mutex
	notes map[string]*types.Note
	order []string // insertion order, used as fetch order

	listTitlesCalls    int
	lastExcludeIDs     []string
	saveEmbeddingErrs  map[string]error
	saveEmbeddingCalls int
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{
		notes:             make(map[string]*types.Note),
		saveEmbeddingErrs: make(map[string]error),
	}
}

func (m *mockNoteStore) add(note *types.Note) {
	m.notes[note.ID] = note
	m.order = append(m.order, note.ID)
}

func (m *mockNoteStore) Store(ctx context.Context, note *types.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[note.ID]; !ok {
		m.order = append(m.order, note.ID)
	}
	m.notes[note.ID] = note
	return nil
}

func (m *mockNoteStore) Get(ctx context.Context, id string) (*types.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if note, ok := m.notes[id]; ok {
		copied := *note
		return &copied, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockNoteStore) GetMany(ctx context.Context, workspaceID string, ids []string, limit int) ([]types.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Note
	for _, id := range ids {
		note, ok := m.notes[id]
		if !ok || note.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, *note)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockNoteStore) ListTitles(ctx context.Context, workspaceID string, excludeIDs []string) ([]storage.NoteTitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTitlesCalls++
	m.lastExcludeIDs = excludeIDs

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var titles []storage.NoteTitle
	for _, id := range m.order {
		note := m.notes[id]
		if note.WorkspaceID != workspaceID {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		titles = append(titles, storage.NoteTitle{ID: note.ID, Title: note.Title})
	}
	return titles, nil
}

func (m *mockNoteStore) List(ctx context.Context, workspaceID string, opts storage.ListOptions) ([]types.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts.Normalize()
	var out []types.Note
	for _, id := range m.order {
		if note := m.notes[id]; note.WorkspaceID == workspaceID {
			out = append(out, *note)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockNoteStore) ListStale(ctx context.Context, workspaceID string, limit int) ([]types.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Note
	for _, id := range m.order {
		note := m.notes[id]
		if note.WorkspaceID == workspaceID && note.Stale() {
			out = append(out, *note)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockNoteStore) SaveEmbedding(ctx context.Context, id string, embedding []float32, contentHash string, embeddedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveEmbeddingCalls++
	if err, ok := m.saveEmbeddingErrs[id]; ok {
		return err
	}
	note, ok := m.notes[id]
	if !ok {
		return storage.ErrNotFound
	}
	note.Embedding = embedding
	note.ContentHash = contentHash
	t := embeddedAt
	note.LastEmbeddedAt = &t
	return nil
}

func (m *mockNoteStore) MarkStale(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return storage.ErrNotFound
	}
	note.LastEmbeddedAt = nil
	return nil
}

func (m *mockNoteStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.notes, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockNoteStore) Close() error { return nil }

// mockVectorSearcher returns canned nearest-neighbor results.
type mockVectorSearcher struct {
	results []types.Note
	err     error
	calls   int
}

func (v *mockVectorSearcher) NearestNotes(ctx context.Context, workspaceID string, query []float32, excludeIDs []string, limit int) ([]types.Note, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var out []types.Note
	for _, note := range v.results {
		if _, skip := excluded[note.ID]; skip {
			continue
		}
		out = append(out, note)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeEmbedder implements llm.EmbeddingClient with a configurable response.
type fakeEmbedder struct {
	err    error
	vector []float32
	calls  int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec := f.vector
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedder" }
