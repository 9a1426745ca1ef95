// Package index implements the Indexing Orchestrator (spec C6): full and
// incremental collection builds, change detection by content hash, and
// provider-compatibility gating between runs.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/michele-orsini-71/minerva/internal/chunk"
	"github.com/michele-orsini-71/minerva/internal/config"
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/provider"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

// Stats is the outcome of one Index run (spec §4.6 steps "full index path"
// / "incremental update path", final step of each).
type Stats struct {
	Mode      string // "full" or "incremental"
	Notes     int    // full mode: total notes processed
	Chunks    int    // full mode: total chunks upserted
	Added     int    // incremental mode
	Updated   int    // incremental mode
	Deleted   int    // incremental mode
	Unchanged int    // incremental mode
	Elapsed   time.Duration
}

// Orchestrator runs spec §4.6's Index operation against one vector store.
type Orchestrator struct {
	store vectorstore.Store
}

// NewOrchestrator builds an Orchestrator over store.
func NewOrchestrator(store vectorstore.Store) *Orchestrator {
	return &Orchestrator{store: store}
}

// Index runs the full spec §4.6 decision tree: preconditions, then either
// the full or incremental path depending on the collection's current state.
func (o *Orchestrator) Index(ctx context.Context, cfg *config.IndexConfig, resolver provider.Resolver) (Stats, error) {
	start := time.Now()

	notes, err := LoadNotes(cfg.Collection.JSONFile)
	if err != nil {
		return Stats{}, err
	}

	p, err := provider.New(ctx, cfg.Provider.ToProviderConfig(), resolver)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = p.Close() }()

	check := p.Check(ctx)
	if !check.Available {
		return Stats{}, minerrors.ProviderUnavailable(check.Reason, nil).
			WithSuggestion("verify the provider's base_url and credentials, then retry")
	}

	if !cfg.Collection.SkipAIValidation && cfg.Provider.LLMModel != "" {
		warnIfDescriptionWeak(ctx, p, cfg.Collection.Name, cfg.Collection.Description)
	}

	chunkSize := cfg.Collection.ChunkSize
	if chunkSize <= 0 {
		chunkSize = chunk.DefaultTargetChars
	}

	info, exists, err := o.findCollection(ctx, cfg.Collection.Name)
	if err != nil {
		return Stats{}, err
	}

	switch {
	case !exists:
		return o.runFull(ctx, cfg, notes, p, check.Dimension, chunkSize, start)

	case cfg.Collection.ForceRecreate:
		if err := o.store.DeleteCollection(ctx, cfg.Collection.Name); err != nil {
			return Stats{}, err
		}
		return o.runFull(ctx, cfg, notes, p, check.Dimension, chunkSize, start)

	default:
		if info.Metadata.Version == "" {
			return Stats{}, minerrors.IncompatibleCollection(
				fmt.Sprintf("collection %q is a v1 collection", cfg.Collection.Name), nil,
			).WithSuggestion("re-index with force_recreate: true")
		}
		if info.Metadata.EmbeddingProvider != cfg.Provider.Kind ||
			info.Metadata.EmbeddingModel != cfg.Provider.EmbeddingModel ||
			info.Metadata.ChunkSize != chunkSize {
			return Stats{}, minerrors.IncompatibleCollection(
				fmt.Sprintf("collection %q was indexed with a different provider, model, or chunk_size", cfg.Collection.Name), nil,
			).WithDetail("collection", cfg.Collection.Name).
				WithSuggestion("embeddings are not mixable; re-index with force_recreate: true to switch")
		}
		return o.runIncremental(ctx, cfg, notes, p, info, start)
	}
}

func (o *Orchestrator) findCollection(ctx context.Context, name string) (vectorstore.CollectionInfo, bool, error) {
	infos, err := o.store.ListCollections(ctx)
	if err != nil {
		return vectorstore.CollectionInfo{}, false, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, true, nil
		}
	}
	return vectorstore.CollectionInfo{}, false, nil
}

func (o *Orchestrator) runFull(
	ctx context.Context,
	cfg *config.IndexConfig,
	notes []*chunk.Note,
	p provider.Provider,
	dimension int,
	chunkSize int,
	start time.Time,
) (Stats, error) {
	chunks := chunkNotes(notes, chunkSize)

	records, err := embedChunks(ctx, p, chunks)
	if err != nil {
		return Stats{}, err
	}

	now := time.Now().UTC()
	meta := vectorstore.CollectionMetadata{
		Version:            vectorstore.CurrentMetadataVersion,
		Description:        cfg.Collection.Description,
		NoteCount:          len(notes),
		CreatedAt:          now,
		LastUpdated:        now,
		NoteHashAlgorithm:  "sha256",
		EmbeddingProvider:  cfg.Provider.Kind,
		EmbeddingModel:     cfg.Provider.EmbeddingModel,
		EmbeddingDimension: dimension,
		EmbeddingBaseURL:   cfg.Provider.BaseURL,
		EmbeddingAPIKeyRef: cfg.Provider.APIKeyRef,
		LLMModel:           cfg.Provider.LLMModel,
		ChunkSize:          chunkSize,
	}

	h, err := o.store.CreateCollection(ctx, cfg.Collection.Name, meta)
	if err != nil {
		return Stats{}, err
	}
	if err := o.store.Upsert(ctx, h, records); err != nil {
		return Stats{}, err
	}

	return Stats{Mode: "full", Notes: len(notes), Chunks: len(chunks), Elapsed: time.Since(start)}, nil
}

func (o *Orchestrator) runIncremental(
	ctx context.Context,
	cfg *config.IndexConfig,
	notes []*chunk.Note,
	p provider.Provider,
	info vectorstore.CollectionInfo,
	start time.Time,
) (Stats, error) {
	h, err := o.store.GetCollection(ctx, cfg.Collection.Name)
	if err != nil {
		return Stats{}, err
	}

	digests, err := o.store.ScanNoteDigests(ctx, h)
	if err != nil {
		return Stats{}, err
	}

	incoming := make(map[string]*chunk.Note, len(notes))
	for _, n := range notes {
		incoming[chunk.NoteID(n.Title, n.CreationDate)] = n
	}

	var toEmbed []*chunk.Note
	var deleteIDs []string
	added, updated, unchanged := 0, 0, 0

	for noteID, n := range incoming {
		existing, known := digests[noteID]
		switch {
		case !known:
			added++
			toEmbed = append(toEmbed, n)
		case chunk.ContentHash(n.Title, n.Markdown) != existing.ContentHash:
			updated++
			deleteIDs = append(deleteIDs, noteID)
			toEmbed = append(toEmbed, n)
		default:
			unchanged++
		}
	}

	deleted := 0
	for noteID := range digests {
		if _, stillPresent := incoming[noteID]; !stillPresent {
			deleteIDs = append(deleteIDs, noteID)
			deleted++
		}
	}

	if len(deleteIDs) > 0 {
		if err := o.store.DeleteByFilter(ctx, h, vectorstore.Filter{NoteIDs: deleteIDs}); err != nil {
			return Stats{}, err
		}
	}

	chunks := chunkNotes(toEmbed, info.Metadata.ChunkSize)
	records, err := embedChunks(ctx, p, chunks)
	if err != nil {
		return Stats{}, err
	}
	if len(records) > 0 {
		if err := o.store.Upsert(ctx, h, records); err != nil {
			return Stats{}, err
		}
	}

	meta := info.Metadata
	meta.LastUpdated = time.Now().UTC()
	meta.NoteCount = len(notes)
	meta.Description = cfg.Collection.Description
	if err := o.store.UpdateCollectionMetadata(ctx, h, meta); err != nil {
		return Stats{}, err
	}

	return Stats{
		Mode:      "incremental",
		Added:     added,
		Updated:   updated,
		Deleted:   deleted,
		Unchanged: unchanged,
		Elapsed:   time.Since(start),
	}, nil
}

// chunkNotes chunks every note, skipping (and logging) individual chunking
// failures rather than aborting the whole run (spec §4.6 failure semantics).
func chunkNotes(notes []*chunk.Note, chunkSize int) []*chunk.Chunk {
	chunker := chunk.NewMarkdownChunkerWithOptions(chunk.Options{TargetChars: chunkSize})

	var out []*chunk.Chunk
	for _, n := range notes {
		cs, err := chunker.Chunk(n)
		if err != nil {
			slog.Warn("skipping note that failed to chunk",
				slog.String("title", n.Title),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, cs...)
	}
	return out
}

// embedChunks batch-embeds every chunk's content and assembles the
// resulting vectorstore.Record slice, preserving order (spec §5's "the
// i-th input text maps to the i-th returned vector").
func embedChunks(ctx context.Context, p provider.Provider, chunks []*chunk.Chunk) ([]vectorstore.Record, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += vectorstore.UpsertBatchSize {
		end := start + vectorstore.UpsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := p.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}

		for i, c := range batch {
			meta := map[string]string{
				vectorstore.MetaKeyNoteID:           c.NoteID,
				vectorstore.MetaKeyTitle:            c.Title,
				vectorstore.MetaKeyChunkIndex:        strconv.Itoa(c.ChunkIndex),
				vectorstore.MetaKeyModificationDate: c.ModificationDate,
			}
			if c.ContentHash != "" {
				meta[vectorstore.MetaKeyContentHash] = c.ContentHash
			}
			records = append(records, vectorstore.Record{
				ID:        c.ID,
				Embedding: vectors[i],
				Document:  c.Content,
				Metadata:  meta,
			})
		}
	}
	return records, nil
}

// warnIfDescriptionWeak implements the optional AI-validation precondition
// (spec §4.6 step 4): score the collection description 0-10 with the
// chat-capable provider and warn, never fail, below 7.
func warnIfDescriptionWeak(ctx context.Context, p provider.Provider, collectionName, description string) {
	prompt := fmt.Sprintf(
		"Rate how well this one-sentence description would help an AI agent decide "+
			"whether to search this knowledge base. Respond with only an integer from 0 to 10.\n\nDescription: %q",
		description,
	)
	result, err := p.Complete(ctx, []provider.Message{{Role: provider.RoleUser, Content: prompt}}, 0)
	if err != nil {
		slog.Warn("description quality check failed, continuing without it",
			slog.String("collection", collectionName), slog.String("error", err.Error()))
		return
	}

	score, ok := parseLeadingScore(result.Content)
	if !ok {
		return
	}
	if score < 7 {
		slog.Warn("collection description may be too vague for an agent to choose it",
			slog.String("collection", collectionName), slog.Int("score", score))
	}
}

func parseLeadingScore(s string) (int, bool) {
	digits := ""
	for _, r := range s {
		if r < '0' || r > '9' {
			if digits != "" {
				break
			}
			continue
		}
		digits += string(r)
	}
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if n > 10 {
		n = 10
	}
	return n, true
}
