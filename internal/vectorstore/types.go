// Package vectorstore is the abstract contract over a persistent ANN store
// (spec §4.4 Vector Store Adapter, §4.5 Collection Metadata): a named
// collection of (id, embedding, document, metadata) records supporting
// cosine-similarity nearest-neighbor query, filtered deletion, and metadata
// bookkeeping. The concrete backing combines coder/hnsw for the ANN graph,
// SQLite for document/metadata persistence, and bleve for the noteId
// predicate evaluation deleteByFilter needs.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// CurrentMetadataVersion is written onto every collection created by this
// build. A collection found with an absent or different version is a legacy
// collection the Orchestrator refuses to update incrementally (spec §4.6).
const CurrentMetadataVersion = "2.0"

// CollectionMetadata is the single source of truth for what embedding a
// collection speaks, per spec §3 and §4.5. It is serialized to the metadata
// row whenever a collection is created or updated.
type CollectionMetadata struct {
	Version             string    `json:"version"`
	Description         string    `json:"description"`
	NoteCount           int       `json:"note_count"`
	CreatedAt           time.Time `json:"created_at"`
	LastUpdated         time.Time `json:"last_updated"`
	NoteHashAlgorithm   string    `json:"note_hash_algorithm"`
	EmbeddingProvider   string    `json:"embedding_provider"`
	EmbeddingModel      string    `json:"embedding_model"`
	EmbeddingDimension  int       `json:"embedding_dimension"`
	EmbeddingBaseURL    string    `json:"embedding_base_url,omitempty"`
	EmbeddingAPIKeyRef  string    `json:"embedding_api_key_ref,omitempty"`
	LLMModel            string    `json:"llm_model,omitempty"`
	ChunkSize           int       `json:"chunk_size"`
}

// Record is one upserted (id, embedding, document, metadata) tuple. The
// reserved metadata key "note_id" is required on every record and backs
// DeleteByFilter; "content_hash" is present only on a note's first chunk,
// per spec §3.
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]string
}

const (
	MetaKeyNoteID           = "note_id"
	MetaKeyContentHash      = "content_hash"
	MetaKeyChunkIndex       = "chunk_index"
	MetaKeyTitle            = "title"
	MetaKeyModificationDate = "modification_date"
)

// Result is one query match, ordered nearest-first.
type Result struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float32
}

// Filter restricts Query and DeleteByFilter to chunks whose note_id is a
// member of NoteIDs. An empty Filter matches everything in Query;
// DeleteByFilter with an empty Filter deletes nothing.
type Filter struct {
	NoteIDs []string
}

// CollectionInfo is one row of ListCollections' result.
type CollectionInfo struct {
	Name     string
	Metadata CollectionMetadata
}

// NoteDigest is one entry of the Orchestrator's incremental-update scan
// (spec §4.6 step 1): the IDs of every chunk belonging to one note, and the
// content hash taken from the chunk that carries a non-empty content_hash.
type NoteDigest struct {
	ContentHash string
	ChunkIDs    []string
}

// Handle identifies an open collection. It is returned by CreateCollection
// and GetCollection and passed to every other per-collection operation.
type Handle struct {
	name string
	col  *collection
}

// Name returns the collection name this handle was opened for.
func (h *Handle) Name() string { return h.name }

// Store is the abstract vector-store contract of spec §4.4.
type Store interface {
	CreateCollection(ctx context.Context, name string, metadata CollectionMetadata) (*Handle, error)
	GetCollection(ctx context.Context, name string) (*Handle, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// Upsert is idempotent on Record.ID; batches larger than UpsertBatchSize
	// are split internally.
	Upsert(ctx context.Context, h *Handle, batch []Record) error
	DeleteByFilter(ctx context.Context, h *Handle, filter Filter) error
	Query(ctx context.Context, h *Handle, embedding []float32, k int, filter *Filter) ([]Result, error)
	UpdateCollectionMetadata(ctx context.Context, h *Handle, metadata CollectionMetadata) error

	// ScanNoteDigests backs the Orchestrator's incremental-update change
	// detection (spec §4.6 step 1): it reads back every chunk of the
	// collection, keyed by note_id, taking each note's content_hash from
	// the chunk that carries one.
	ScanNoteDigests(ctx context.Context, h *Handle) (map[string]NoteDigest, error)

	// GetChunksByNote backs the Search Engine's enhanced context mode
	// (spec §4.8 step 6): it returns every chunk of one note, so the
	// caller can find the chunk immediately before/after a match by
	// chunk_index without an ANN query.
	GetChunksByNote(ctx context.Context, h *Handle, noteID string) ([]Record, error)

	Close() error
}

// UpsertBatchSize is the default batch size for Upsert (spec §4.4).
const UpsertBatchSize = 64

// ErrCollectionNotFound is returned by GetCollection when no collection with
// that name exists.
var ErrCollectionNotFound = minerrors.CollectionNotFound("collection not found", nil)

// ErrCollectionExists is returned by CreateCollection when a collection
// with that name already exists; callers should DeleteCollection first
// (force_recreate path) or use the incremental path.
var ErrCollectionExists = minerrors.StorageError("collection already exists", nil)

func storageErrorf(format string, args ...any) error {
	return minerrors.StorageError(fmt.Sprintf(format, args...), nil)
}
