package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/michele-orsini-71/minerva/internal/discovery"
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

// Engine runs the spec §4.8 search operation against a discovered
// collection's provider and vector store.
type Engine struct {
	store    vectorstore.Store
	registry *discovery.Registry
}

// NewEngine builds a Search Engine over a published discovery registry and
// the vector store it was discovered from.
func NewEngine(store vectorstore.Store, registry *discovery.Registry) *Engine {
	return &Engine{store: store, registry: registry}
}

// Search implements spec §4.8 steps 1-7.
func (e *Engine) Search(ctx context.Context, collectionName, query string, k int, mode ContextMode) ([]Result, error) {
	entry, ok := e.registry.Lookup(collectionName)
	if !ok {
		return nil, minerrors.CollectionNotFound(fmt.Sprintf("collection %q not found", collectionName), nil).
			WithDetail("collection", collectionName)
	}
	if !entry.Available {
		return nil, minerrors.CollectionUnavailable(entry.Reason, nil).
			WithDetail("collection", collectionName)
	}

	k = clampK(k)

	embeddings, err := entry.Provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, minerrors.InternalError("embedder returned an unexpected number of vectors", nil)
	}
	queryVector := embeddings[0]
	if len(queryVector) != entry.Metadata.EmbeddingDimension {
		return nil, minerrors.DimensionMismatch(
			fmt.Sprintf("query embedding has %d dimensions, collection expects %d", len(queryVector), entry.Metadata.EmbeddingDimension),
			nil,
		).WithDetail("collection", collectionName)
	}

	matches, err := e.store.Query(ctx, entry.Handle, queryVector, k, nil)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	totalChars := 0
	for _, m := range matches {
		content := m.Document
		if mode == ContextEnhanced {
			content, err = e.withNeighbors(ctx, entry.Handle, m)
			if err != nil {
				return nil, err
			}
		}
		totalChars += len(content)

		chunkIndex, _ := strconv.Atoi(m.Metadata[vectorstore.MetaKeyChunkIndex])
		results = append(results, Result{
			NoteTitle:        m.Metadata[vectorstore.MetaKeyTitle],
			NoteID:           m.Metadata[vectorstore.MetaKeyNoteID],
			ChunkIndex:       chunkIndex,
			ModificationDate: m.Metadata[vectorstore.MetaKeyModificationDate],
			CollectionName:   collectionName,
			SimilarityScore:  1 - m.Distance,
			Content:          content,
		})
	}

	if estimatedTokens := (totalChars + 3) / 4; estimatedTokens > TokenWarnThreshold {
		slog.Warn("search response may exceed client token limit",
			slog.String("collection", collectionName),
			slog.Int("estimated_tokens", estimatedTokens),
			slog.Int("result_count", len(results)))
	}

	return results, nil
}

// withNeighbors concatenates the immediately preceding and following chunk
// of the matched chunk's note, by chunk index (spec §4.8 step 6, enhanced
// mode).
func (e *Engine) withNeighbors(ctx context.Context, h *vectorstore.Handle, match vectorstore.Result) (string, error) {
	noteID := match.Metadata[vectorstore.MetaKeyNoteID]
	matchedIndex, _ := strconv.Atoi(match.Metadata[vectorstore.MetaKeyChunkIndex])

	chunks, err := e.store.GetChunksByNote(ctx, h, noteID)
	if err != nil {
		return "", err
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunkIndexOf(chunks[i]) < chunkIndexOf(chunks[j])
	})

	var parts []string
	for _, c := range chunks {
		idx := chunkIndexOf(c)
		if idx == matchedIndex-1 || idx == matchedIndex || idx == matchedIndex+1 {
			parts = append(parts, c.Document)
		}
	}
	if len(parts) == 0 {
		return match.Document, nil
	}
	return strings.Join(parts, "\n\n"), nil
}

func chunkIndexOf(r vectorstore.Record) int {
	idx, _ := strconv.Atoi(r.Metadata[vectorstore.MetaKeyChunkIndex])
	return idx
}

// clampK enforces spec §4.8 step 2's [1, MaxK] bound. The default value
// itself (server-config's default_max_results) is resolved by the caller
// before reaching Search.
func clampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

// ListKnowledgeBases returns a summary for every available collection (spec
// §4.8), for the list_knowledge_bases MCP tool.
func (e *Engine) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBaseSummary, error) {
	var out []KnowledgeBaseSummary
	for _, entry := range e.registry.List() {
		if !entry.Available {
			continue
		}
		chunkCount := 0
		digests, err := e.store.ScanNoteDigests(ctx, entry.Handle)
		if err != nil {
			return nil, err
		}
		for _, d := range digests {
			chunkCount += len(d.ChunkIDs)
		}

		out = append(out, KnowledgeBaseSummary{
			Name:           entry.Name,
			Description:    entry.Metadata.Description,
			NoteCount:      entry.Metadata.NoteCount,
			EmbeddingModel: entry.Metadata.EmbeddingModel,
			ChunkCount:     chunkCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
