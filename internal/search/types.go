// Package search implements the Search Engine (spec C8): query embedding,
// ANN lookup against a collection's vector store, and result shaping with
// optional neighboring-chunk context. It is deliberately a thin,
// single-provider semantic search — the teacher's hybrid BM25/RRF/rerank
// pipeline has no home here, since the MCP surface exposes only vector
// search (spec §4.8).
package search

// ContextMode selects how much of a note's text a Result carries.
type ContextMode string

const (
	// ContextChunkOnly returns just the matched chunk's content.
	ContextChunkOnly ContextMode = "chunk_only"
	// ContextEnhanced also concatenates the immediately preceding and
	// following chunk of the same note, by chunk index.
	ContextEnhanced ContextMode = "enhanced"
)

// MaxK is the hard ceiling on requested results (spec §4.8 step 2).
const MaxK = 15

// TokenWarnThreshold is the soft response-size threshold (spec §4.8 step 7).
// Crossing it only logs a warning; the response is still returned in full.
const TokenWarnThreshold = 25000

// Result is one shaped search hit (spec §4.8 step 6).
type Result struct {
	NoteTitle        string  `json:"noteTitle"`
	NoteID           string  `json:"noteId"`
	ChunkIndex       int     `json:"chunkIndex"`
	ModificationDate string  `json:"modificationDate"`
	CollectionName   string  `json:"collectionName"`
	SimilarityScore  float32 `json:"similarityScore"`
	Content          string  `json:"content"`
}

// KnowledgeBaseSummary is one entry of ListKnowledgeBases' result (spec §4.8).
type KnowledgeBaseSummary struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	NoteCount      int    `json:"note_count"`
	EmbeddingModel string `json:"embedding_model"`
	ChunkCount     int    `json:"chunk_count"`
}
