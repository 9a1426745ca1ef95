package index

import (
	"context"
	"sync"

	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

// memStore is a minimal in-memory vectorstore.Store for orchestrator tests
// — real enough to exercise every operation the Orchestrator calls, without
// touching disk.
type memStore struct {
	mu          sync.Mutex
	collections map[string]vectorstore.CollectionMetadata
	chunks      map[string]map[string]vectorstore.Record // collection -> chunkID -> record
	handleNames map[*vectorstore.Handle]string
}

func newMemStore() *memStore {
	return &memStore{
		collections: make(map[string]vectorstore.CollectionMetadata),
		chunks:      make(map[string]map[string]vectorstore.Record),
		handleNames: make(map[*vectorstore.Handle]string),
	}
}

// handleFor mints a distinct Handle for name and remembers the mapping,
// since vectorstore.Handle exposes no exported constructor — tests look up
// a handle's collection through this side table instead of Handle.Name(),
// which only the vectorstore package itself can populate meaningfully.
func (m *memStore) handleFor(name string) *vectorstore.Handle {
	h := &vectorstore.Handle{}
	m.handleNames[h] = name
	return h
}

func (m *memStore) nameOf(h *vectorstore.Handle) string {
	return m.handleNames[h]
}

func (m *memStore) CreateCollection(_ context.Context, name string, meta vectorstore.CollectionMetadata) (*vectorstore.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil, vectorstore.ErrCollectionExists
	}
	m.collections[name] = meta
	m.chunks[name] = make(map[string]vectorstore.Record)
	return m.handleFor(name), nil
}

func (m *memStore) GetCollection(_ context.Context, name string) (*vectorstore.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return m.handleFor(name), nil
}

func (m *memStore) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	delete(m.chunks, name)
	return nil
}

func (m *memStore) ListCollections(context.Context) ([]vectorstore.CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vectorstore.CollectionInfo, 0, len(m.collections))
	for name, meta := range m.collections {
		out = append(out, vectorstore.CollectionInfo{Name: name, Metadata: meta})
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, h *vectorstore.Handle, batch []vectorstore.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.nameOf(h)
	for _, rec := range batch {
		m.chunks[name][rec.ID] = rec
	}
	return nil
}

func (m *memStore) DeleteByFilter(_ context.Context, h *vectorstore.Handle, filter vectorstore.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.nameOf(h)
	wanted := make(map[string]bool, len(filter.NoteIDs))
	for _, id := range filter.NoteIDs {
		wanted[id] = true
	}
	for chunkID, rec := range m.chunks[name] {
		if wanted[rec.Metadata[vectorstore.MetaKeyNoteID]] {
			delete(m.chunks[name], chunkID)
		}
	}
	return nil
}

func (m *memStore) Query(context.Context, *vectorstore.Handle, []float32, int, *vectorstore.Filter) ([]vectorstore.Result, error) {
	panic("not used by orchestrator tests")
}

func (m *memStore) UpdateCollectionMetadata(_ context.Context, h *vectorstore.Handle, meta vectorstore.CollectionMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[m.nameOf(h)] = meta
	return nil
}

func (m *memStore) ScanNoteDigests(_ context.Context, h *vectorstore.Handle) (map[string]vectorstore.NoteDigest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]vectorstore.NoteDigest)
	for id, rec := range m.chunks[m.nameOf(h)] {
		noteID := rec.Metadata[vectorstore.MetaKeyNoteID]
		d := out[noteID]
		if hash := rec.Metadata[vectorstore.MetaKeyContentHash]; hash != "" {
			d.ContentHash = hash
		}
		d.ChunkIDs = append(d.ChunkIDs, id)
		out[noteID] = d
	}
	return out, nil
}

func (m *memStore) GetChunksByNote(_ context.Context, h *vectorstore.Handle, noteID string) ([]vectorstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vectorstore.Record
	for _, rec := range m.chunks[m.nameOf(h)] {
		if rec.Metadata[vectorstore.MetaKeyNoteID] == noteID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

var _ vectorstore.Store = (*memStore)(nil)
