package index

import (
	"context"
	"testing"
	"time"

	"github.com/michele-orsini-71/minerva/internal/chunk"
	"github.com/michele-orsini-71/minerva/internal/config"
	"github.com/michele-orsini-71/minerva/internal/provider"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a fixed-dimension vector for every input and a fixed
// completion for description scoring.
type fakeProvider struct {
	dimension    int
	completion   string
	completeErr  error
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dimension)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}
func (f *fakeProvider) Complete(context.Context, []provider.Message, float64) (provider.CompletionResult, error) {
	if f.completeErr != nil {
		return provider.CompletionResult{}, f.completeErr
	}
	return provider.CompletionResult{Content: f.completion}, nil
}
func (f *fakeProvider) Check(context.Context) provider.CheckResult { panic("not used directly") }
func (f *fakeProvider) Close() error                               { return nil }

var _ provider.Provider = (*fakeProvider)(nil)

func testIndexConfig(name string) *config.IndexConfig {
	return &config.IndexConfig{
		ChromaDBPath: "/tmp/minerva-test",
		Collection: config.CollectionConfig{
			Name:        name,
			Description: "a test knowledge base",
			JSONFile:    "/tmp/notes.json",
		},
		Provider: config.ProviderConfig{
			Kind:           "ollama",
			EmbeddingModel: "nomic-embed-text",
		},
	}
}

func TestOrchestrator_RunFull_CreatesCollectionAndUpsertsChunks(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	orch := NewOrchestrator(store)
	p := &fakeProvider{dimension: 4}

	notes := []*chunk.Note{
		{Title: "Note A", Markdown: "Some content about apples.", ModificationDate: "2026-01-01T00:00:00Z"},
	}

	stats, err := orch.runFull(ctx, testIndexConfig("notes"), notes, p, 4, chunk.DefaultTargetChars, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "full", stats.Mode)
	assert.Equal(t, 1, stats.Notes)
	assert.GreaterOrEqual(t, stats.Chunks, 1)

	meta, ok := store.collections["notes"]
	require.True(t, ok)
	assert.Equal(t, vectorstore.CurrentMetadataVersion, meta.Version)
	assert.Equal(t, 4, meta.EmbeddingDimension)
	assert.Equal(t, 1, meta.NoteCount)

	assert.Len(t, store.chunks["notes"], stats.Chunks)
}

func TestOrchestrator_RunIncremental_ClassifiesAddedUpdatedDeletedUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	orch := NewOrchestrator(store)
	p := &fakeProvider{dimension: 4}

	unchangedNote := &chunk.Note{Title: "Unchanged", Markdown: "same content", ModificationDate: "2026-01-01T00:00:00Z"}
	toBeUpdatedOld := &chunk.Note{Title: "Updated", Markdown: "old content", ModificationDate: "2026-01-01T00:00:00Z"}
	toBeDeleted := &chunk.Note{Title: "Deleted", Markdown: "going away", ModificationDate: "2026-01-01T00:00:00Z"}

	seedStats, err := orch.runFull(ctx, testIndexConfig("notes"), []*chunk.Note{unchangedNote, toBeUpdatedOld, toBeDeleted}, p, 4, chunk.DefaultTargetChars, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, seedStats.Notes)

	info, exists, err := orch.findCollection(ctx, "notes")
	require.NoError(t, err)
	require.True(t, exists)

	updatedNote := &chunk.Note{Title: "Updated", Markdown: "NEW content, very different", ModificationDate: "2026-02-01T00:00:00Z"}
	addedNote := &chunk.Note{Title: "Added", Markdown: "brand new note", ModificationDate: "2026-02-01T00:00:00Z"}

	incoming := []*chunk.Note{unchangedNote, updatedNote, addedNote}
	stats, err := orch.runIncremental(ctx, testIndexConfig("notes"), incoming, p, info, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "incremental", stats.Mode)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 1, stats.Unchanged)

	digests, err := store.ScanNoteDigests(ctx, mustHandle(t, store, "notes"))
	require.NoError(t, err)
	assert.NotContains(t, digests, chunk.NoteID("Deleted", ""))
	assert.Contains(t, digests, chunk.NoteID("Unchanged", ""))
	assert.Contains(t, digests, chunk.NoteID("Updated", ""))
	assert.Contains(t, digests, chunk.NoteID("Added", ""))
}

func mustHandle(t *testing.T, store *memStore, name string) *vectorstore.Handle {
	t.Helper()
	h, err := store.GetCollection(context.Background(), name)
	require.NoError(t, err)
	return h
}

func TestParseLeadingScore(t *testing.T) {
	cases := map[string]struct {
		score int
		ok    bool
	}{
		"7":                {7, true},
		"  9 out of 10":    {9, true},
		"10/10":            {10, true},
		"no numeric reply": {0, false},
		"":                 {0, false},
	}
	for input, want := range cases {
		score, ok := parseLeadingScore(input)
		assert.Equal(t, want.ok, ok, "input=%q", input)
		if want.ok {
			assert.Equal(t, want.score, score, "input=%q", input)
		}
	}
}

func TestEmbedChunks_FirstChunkOnlyCarriesContentHash(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{dimension: 4}
	note := &chunk.Note{Title: "Long Note", Markdown: longMarkdownForMultipleChunks(), ModificationDate: "2026-01-01T00:00:00Z"}

	chunks := chunkNotes([]*chunk.Note{note}, 50)
	require.GreaterOrEqual(t, len(chunks), 2, "fixture must produce more than one chunk")

	records, err := embedChunks(ctx, p, chunks)
	require.NoError(t, err)

	hashes := 0
	for _, r := range records {
		if r.Metadata[vectorstore.MetaKeyContentHash] != "" {
			hashes++
		}
	}
	assert.Equal(t, 1, hashes)
}

func longMarkdownForMultipleChunks() string {
	s := ""
	for i := 0; i < 30; i++ {
		s += "This is a paragraph with enough content to force multiple chunks.\n\n"
	}
	return s
}
