package vectorstore

import (
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// noteFilterDoc is the document shape indexed into bleve: just enough to
// answer "which chunk IDs belong to these note IDs" without touching SQLite.
type noteFilterDoc struct {
	NoteID string `json:"note_id"`
}

// noteFilterIndex backs DeleteByFilter's `noteId ∈ …` predicate (spec §4.4),
// adapted from the teacher's BleveBM25Index: here bleve indexes one keyword
// field (note_id) per chunk rather than tokenized BM25 content, since
// Minerva's MCP surface never needs keyword ranking, only exact note-id
// membership tests (DOMAIN STACK, internal/vectorstore).
type noteFilterIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

func noteFilterMapping() mapping.IndexMapping {
	noteIDField := bleve.NewTextFieldMapping()
	noteIDField.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("note_id", noteIDField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping
	return im
}

func newNoteFilterIndex(path string) (*noteFilterIndex, error) {
	im := noteFilterMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, storageErrorf("open note filter index: %v", err)
	}
	return &noteFilterIndex{index: idx, path: path}, nil
}

func (n *noteFilterIndex) put(chunkID, noteID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Index(chunkID, noteFilterDoc{NoteID: noteID})
}

func (n *noteFilterIndex) putBatch(recs []Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := n.index.NewBatch()
	for _, r := range recs {
		if err := batch.Index(r.ID, noteFilterDoc{NoteID: r.Metadata[MetaKeyNoteID]}); err != nil {
			return storageErrorf("batch index chunk %s: %v", r.ID, err)
		}
	}
	return n.index.Batch(batch)
}

func (n *noteFilterIndex) delete(chunkIDs []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := n.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	return n.index.Batch(batch)
}

// chunkIDsForNotes returns every chunk ID whose note_id is a member of
// noteIDs, evaluating the predicate via bleve term queries rather than a
// SQL scan.
func (n *noteFilterIndex) chunkIDsForNotes(noteIDs []string) ([]string, error) {
	if len(noteIDs) == 0 {
		return nil, nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	disjunct := bleve.NewDisjunctionQuery()
	for _, noteID := range noteIDs {
		disjunct.AddQuery(bleve.NewTermQuery(noteID).SetField("note_id"))
	}

	// bleve requires a concrete page size; probe the hit count first, then
	// re-issue the query sized to fetch every match in one page.
	probe := bleve.NewSearchRequest(disjunct)
	probe.Size = 1
	probeResult, err := n.index.Search(probe)
	if err != nil {
		return nil, storageErrorf("search note filter index: %v", err)
	}
	if probeResult.Total == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(disjunct)
	req.Size = int(probeResult.Total)
	result, err := n.index.Search(req)
	if err != nil {
		return nil, storageErrorf("search note filter index: %v", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (n *noteFilterIndex) matchSet(noteIDs []string) (map[string]bool, error) {
	ids, err := n.chunkIDsForNotes(noteIDs)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (n *noteFilterIndex) close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Close()
}
