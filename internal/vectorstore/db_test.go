package vectorstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *metadataDB {
	t.Helper()
	db, err := openMetadataDB(filepath.Join(t.TempDir(), "minerva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.close() })
	return db
}

func sampleMetadata() CollectionMetadata {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return CollectionMetadata{
		Version:            CurrentMetadataVersion,
		Description:        "test collection",
		NoteCount:          1,
		CreatedAt:          now,
		LastUpdated:        now,
		NoteHashAlgorithm:  "sha256",
		EmbeddingProvider:  "ollama",
		EmbeddingModel:     "nomic-embed-text",
		EmbeddingDimension: 4,
		ChunkSize:          1200,
	}
}

func TestMetadataDB_CreateAndGetCollectionRoundTrips(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	meta := sampleMetadata()
	require.NoError(t, db.createCollectionRow(ctx, "notes", meta))

	got, err := db.getCollectionRow(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, meta.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, meta.EmbeddingDimension, got.EmbeddingDimension)
}

func TestMetadataDB_CreateDuplicateCollectionFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.createCollectionRow(ctx, "notes", sampleMetadata()))
	err := db.createCollectionRow(ctx, "notes", sampleMetadata())
	require.Error(t, err)
}

func TestMetadataDB_GetMissingCollectionReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.getCollectionRow(context.Background(), "missing")
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMetadataDB_UpsertChunkRowsIsIdempotentOnID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.createCollectionRow(ctx, "notes", sampleMetadata()))

	rec := Record{
		ID:       "chunk-1",
		Document: "first version",
		Metadata: map[string]string{MetaKeyNoteID: "note-a", MetaKeyContentHash: "hash1"},
	}
	require.NoError(t, db.upsertChunkRows(ctx, "notes", []Record{rec}))

	rec.Document = "second version"
	require.NoError(t, db.upsertChunkRows(ctx, "notes", []Record{rec}))

	rows, err := db.getChunkRows(ctx, "notes", []string{"chunk-1"})
	require.NoError(t, err)
	require.Contains(t, rows, "chunk-1")
	assert.Equal(t, "second version", rows["chunk-1"].Document)
}

func TestMetadataDB_ScanNoteDigestsGroupsByNote(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.createCollectionRow(ctx, "notes", sampleMetadata()))

	require.NoError(t, db.upsertChunkRows(ctx, "notes", []Record{
		{ID: "c0", Document: "chunk 0", Metadata: map[string]string{MetaKeyNoteID: "note-a", MetaKeyContentHash: "hash-a"}},
		{ID: "c1", Document: "chunk 1", Metadata: map[string]string{MetaKeyNoteID: "note-a"}},
		{ID: "d0", Document: "chunk 0", Metadata: map[string]string{MetaKeyNoteID: "note-b", MetaKeyContentHash: "hash-b"}},
	}))

	digests, err := db.scanNoteDigests(ctx, "notes")
	require.NoError(t, err)
	require.Contains(t, digests, "note-a")
	assert.Equal(t, "hash-a", digests["note-a"].ContentHash)
	assert.ElementsMatch(t, []string{"c0", "c1"}, digests["note-a"].ChunkIDs)
	assert.Equal(t, "hash-b", digests["note-b"].ContentHash)
}

func TestMetadataDB_DeleteCollectionRemovesItsChunks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.createCollectionRow(ctx, "notes", sampleMetadata()))
	require.NoError(t, db.upsertChunkRows(ctx, "notes", []Record{
		{ID: "c0", Document: "x", Metadata: map[string]string{MetaKeyNoteID: "note-a"}},
	}))

	require.NoError(t, db.deleteCollectionRow(ctx, "notes"))

	_, err := db.getCollectionRow(ctx, "notes")
	require.ErrorIs(t, err, ErrCollectionNotFound)

	rows, err := db.getChunkRows(ctx, "notes", []string{"c0"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMetadataDB_GetChunksByNoteReturnsOnlyThatNotesChunks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.createCollectionRow(ctx, "notes", sampleMetadata()))
	require.NoError(t, db.upsertChunkRows(ctx, "notes", []Record{
		{ID: "c0", Document: "a0", Metadata: map[string]string{MetaKeyNoteID: "note-a", MetaKeyChunkIndex: "0"}},
		{ID: "c1", Document: "a1", Metadata: map[string]string{MetaKeyNoteID: "note-a", MetaKeyChunkIndex: "1"}},
		{ID: "c2", Document: "b0", Metadata: map[string]string{MetaKeyNoteID: "note-b", MetaKeyChunkIndex: "0"}},
	}))

	chunks, err := db.getChunksByNote(ctx, "notes", "note-a")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	ids := []string{chunks[0].ID, chunks[1].ID}
	assert.ElementsMatch(t, []string{"c0", "c1"}, ids)

	none, err := db.getChunksByNote(ctx, "notes", "note-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMetadataDB_ListCollectionsReturnsAll(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.createCollectionRow(ctx, "alpha", sampleMetadata()))
	require.NoError(t, db.createCollectionRow(ctx, "beta", sampleMetadata()))

	list, err := db.listCollectionRows(ctx)
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}
