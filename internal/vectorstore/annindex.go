package vectorstore

import (
	"bufio"
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// annIndex is the in-process HNSW ANN graph backing one collection's
// nearest-neighbor search, adapted from the teacher's internal/store/hnsw.go
// HNSWStore to Minerva's string chunk IDs instead of code-chunk IDs. It
// keeps the teacher's lazy-deletion strategy (never call graph.Delete) to
// dodge a known coder/hnsw bug deleting a graph's last remaining node.
type annIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[uint64]
	dimension int

	idToKey map[string]uint64
	keyToID map[uint64]string
	nextKey uint64
}

func newAnnIndex(dimension int) *annIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &annIndex{
		graph:     graph,
		dimension: dimension,
		idToKey:   make(map[string]uint64),
		keyToID:   make(map[uint64]string),
	}
}

func (a *annIndex) add(id string, embedding []float32) error {
	if len(embedding) != a.dimension {
		return storageErrorf("embedding dimension mismatch: expected %d, got %d", a.dimension, len(embedding))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.idToKey[id]; ok {
		delete(a.keyToID, existing)
		delete(a.idToKey, id)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	normalizeInPlace(vec)

	key := a.nextKey
	a.nextKey++
	a.graph.Add(hnsw.MakeNode(key, vec))
	a.idToKey[id] = key
	a.keyToID[key] = id
	return nil
}

func (a *annIndex) delete(ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		if key, ok := a.idToKey[id]; ok {
			delete(a.keyToID, key)
			delete(a.idToKey, id)
		}
	}
}

type annMatch struct {
	id       string
	distance float32
}

// search returns up to k nearest neighbors, optionally restricted to the
// given set of allowed IDs (used when a note-id filter is active). Because
// coder/hnsw has no native filtered search, a filtered query asks the graph
// for a wider candidate pool and then narrows it — acceptable at Minerva's
// per-collection chunk-count scale.
func (a *annIndex) search(query []float32, k int, allowed map[string]bool) ([]annMatch, error) {
	if len(query) != a.dimension {
		return nil, storageErrorf("embedding dimension mismatch: expected %d, got %d", a.dimension, len(query))
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.graph.Len() == 0 {
		return nil, nil
	}

	vec := make([]float32, len(query))
	copy(vec, query)
	normalizeInPlace(vec)

	fetch := k
	if allowed != nil {
		fetch = k * 8
		if fetch < 64 {
			fetch = 64
		}
		if fetch > a.graph.Len() {
			fetch = a.graph.Len()
		}
	}

	nodes := a.graph.Search(vec, fetch)

	out := make([]annMatch, 0, k)
	for _, node := range nodes {
		id, ok := a.keyToID[node.Key]
		if !ok {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}
		dist := a.graph.Distance(vec, node.Value)
		out = append(out, annMatch{id: id, distance: dist})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

type annMetadata struct {
	IDToKey   map[string]uint64
	NextKey   uint64
	Dimension int
}

// save persists the graph (coder/hnsw's native Export format) plus an
// ID-mapping sidecar file, using the teacher's atomic temp-file-then-rename
// pattern.
func (a *annIndex) save(path string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return storageErrorf("create ann index dir: %v", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return storageErrorf("create ann index file: %v", err)
	}
	if err := a.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return storageErrorf("export ann graph: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return storageErrorf("close ann index file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return storageErrorf("rename ann index file: %v", err)
	}

	metaTmp := path + ".meta.tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return storageErrorf("create ann metadata file: %v", err)
	}
	meta := annMetadata{IDToKey: a.idToKey, NextKey: a.nextKey, Dimension: a.dimension}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		mf.Close()
		os.Remove(metaTmp)
		return storageErrorf("encode ann metadata: %v", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(metaTmp)
		return storageErrorf("close ann metadata file: %v", err)
	}
	return os.Rename(metaTmp, path+".meta")
}

// load restores a previously-saved graph. Missing files mean a fresh
// collection and are not an error.
func (a *annIndex) load(path string) error {
	metaFile, err := os.Open(path + ".meta")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return storageErrorf("open ann metadata: %v", err)
	}
	defer metaFile.Close()

	var meta annMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return storageErrorf("decode ann metadata: %v", err)
	}

	graphFile, err := os.Open(path)
	if err != nil {
		return storageErrorf("open ann index: %v", err)
	}
	defer graphFile.Close()

	if err := a.graph.Import(bufio.NewReader(graphFile)); err != nil {
		return storageErrorf("import ann graph: %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.idToKey = meta.IDToKey
	a.nextKey = meta.NextKey
	a.dimension = meta.Dimension
	a.keyToID = make(map[uint64]string, len(meta.IDToKey))
	for id, key := range meta.IDToKey {
		a.keyToID[key] = id
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
