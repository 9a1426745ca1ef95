package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// collection bundles the per-collection on-disk state: the ANN graph, the
// note-id filter index, and the single-writer file lock. Chunk documents
// and collection metadata live in the shared metadataDB instead, scoped by
// collection name.
type collection struct {
	name   string
	dir    string
	ann    *annIndex
	filter *noteFilterIndex
	lock   *collectionLock
}

// SQLiteStore is the concrete Store (spec §4.4) combining:
//   - metadataDB (SQLite) for collection metadata rows and chunk documents
//   - annIndex (coder/hnsw) for the per-collection cosine ANN graph
//   - noteFilterIndex (bleve) for noteId predicate evaluation
//   - collectionLock (gofrs/flock) for single-writer-per-collection safety
//
// baseDir is the configured chromadb_path; each collection gets a
// subdirectory under it for its ANN graph and filter index files.
type SQLiteStore struct {
	mu      sync.Mutex
	baseDir string
	db      *metadataDB
	open    map[string]*collection
}

// Open creates or opens a Store rooted at baseDir (the index/server config's
// chromadb_path).
func Open(baseDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, storageErrorf("create store directory: %v", err)
	}
	db, err := openMetadataDB(filepath.Join(baseDir, "minerva.db"))
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{
		baseDir: baseDir,
		db:      db,
		open:    make(map[string]*collection),
	}, nil
}

func (s *SQLiteStore) collectionDir(name string) string {
	return filepath.Join(s.baseDir, name)
}

// openCollection lazily loads (or creates fresh) the on-disk ANN graph and
// filter index for a collection name, acquiring its write lock.
func (s *SQLiteStore) openCollection(name string, dimension int) (*collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.open[name]; ok {
		return c, nil
	}

	dir := s.collectionDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErrorf("create collection directory: %v", err)
	}

	lock := newCollectionLock(dir)
	acquired, err := lock.tryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, storageErrorf("collection %s is locked by another process", name)
	}

	ann := newAnnIndex(dimension)
	annPath := filepath.Join(dir, "vectors.hnsw")
	if err := ann.load(annPath); err != nil {
		_ = lock.unlock()
		return nil, err
	}

	filter, err := newNoteFilterIndex(filepath.Join(dir, "notes.bleve"))
	if err != nil {
		_ = lock.unlock()
		return nil, err
	}

	c := &collection{name: name, dir: dir, ann: ann, filter: filter, lock: lock}
	s.open[name] = c
	return c, nil
}

func (s *SQLiteStore) closeCollection(name string) {
	s.mu.Lock()
	c, ok := s.open[name]
	if ok {
		delete(s.open, name)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	_ = c.filter.close()
	_ = c.lock.unlock()
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, metadata CollectionMetadata) (*Handle, error) {
	if metadata.Version == "" {
		metadata.Version = CurrentMetadataVersion
	}
	if err := s.db.createCollectionRow(ctx, name, metadata); err != nil {
		return nil, err
	}
	c, err := s.openCollection(name, metadata.EmbeddingDimension)
	if err != nil {
		_ = s.db.deleteCollectionRow(ctx, name)
		return nil, err
	}
	return &Handle{name: name, col: c}, nil
}

func (s *SQLiteStore) GetCollection(ctx context.Context, name string) (*Handle, error) {
	meta, err := s.db.getCollectionRow(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := s.openCollection(name, meta.EmbeddingDimension)
	if err != nil {
		return nil, err
	}
	return &Handle{name: name, col: c}, nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	s.closeCollection(name)
	if err := s.db.deleteCollectionRow(ctx, name); err != nil {
		return err
	}
	return os.RemoveAll(s.collectionDir(name))
}

func (s *SQLiteStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	return s.db.listCollectionRows(ctx)
}

func (s *SQLiteStore) Upsert(ctx context.Context, h *Handle, batch []Record) error {
	for start := 0; start < len(batch); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		part := batch[start:end]

		if err := s.db.upsertChunkRows(ctx, h.name, part); err != nil {
			return err
		}
		for _, rec := range part {
			if err := h.col.ann.add(rec.ID, rec.Embedding); err != nil {
				return err
			}
		}
		if err := h.col.filter.putBatch(part); err != nil {
			return err
		}
	}
	return h.col.ann.save(filepath.Join(h.col.dir, "vectors.hnsw"))
}

func (s *SQLiteStore) DeleteByFilter(ctx context.Context, h *Handle, filter Filter) error {
	if len(filter.NoteIDs) == 0 {
		return nil
	}
	ids, err := h.col.filter.chunkIDsForNotes(filter.NoteIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.deleteChunkRows(ctx, h.name, ids); err != nil {
		return err
	}
	h.col.ann.delete(ids)
	if err := h.col.filter.delete(ids); err != nil {
		return err
	}
	return h.col.ann.save(filepath.Join(h.col.dir, "vectors.hnsw"))
}

func (s *SQLiteStore) Query(ctx context.Context, h *Handle, embedding []float32, k int, filter *Filter) ([]Result, error) {
	var allowed map[string]bool
	if filter != nil && len(filter.NoteIDs) > 0 {
		set, err := h.col.filter.matchSet(filter.NoteIDs)
		if err != nil {
			return nil, err
		}
		allowed = set
	}

	matches, err := h.col.ann.search(embedding, k, allowed)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	rows, err := s.db.getChunkRows(ctx, h.name, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		row, ok := rows[m.id]
		if !ok {
			continue
		}
		out = append(out, Result{ID: m.id, Document: row.Document, Metadata: row.Metadata, Distance: m.distance})
	}
	return out, nil
}

func (s *SQLiteStore) UpdateCollectionMetadata(ctx context.Context, h *Handle, metadata CollectionMetadata) error {
	return s.db.updateCollectionRow(ctx, h.name, metadata)
}

func (s *SQLiteStore) ScanNoteDigests(ctx context.Context, h *Handle) (map[string]NoteDigest, error) {
	return s.db.scanNoteDigests(ctx, h.name)
}

func (s *SQLiteStore) GetChunksByNote(ctx context.Context, h *Handle, noteID string) ([]Record, error) {
	return s.db.getChunksByNote(ctx, h.name, noteID)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	names := make([]string, 0, len(s.open))
	for name := range s.open {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.closeCollection(name)
	}
	return s.db.close()
}

var _ Store = (*SQLiteStore)(nil)
