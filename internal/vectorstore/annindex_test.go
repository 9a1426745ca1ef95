package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnIndex_AddAndSearchReturnsNearestFirst(t *testing.T) {
	idx := newAnnIndex(4)

	require.NoError(t, idx.add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.add("b", []float32{0, 1, 0, 0}))
	require.NoError(t, idx.add("c", []float32{0.9, 0.1, 0, 0}))

	matches, err := idx.search([]float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].id)
	assert.Equal(t, "c", matches[1].id)
}

func TestAnnIndex_AddRejectsWrongDimension(t *testing.T) {
	idx := newAnnIndex(4)
	err := idx.add("a", []float32{1, 0, 0})
	require.Error(t, err)
}

func TestAnnIndex_DeleteIsLazyAndExcludesFromSearch(t *testing.T) {
	idx := newAnnIndex(4)
	require.NoError(t, idx.add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.add("b", []float32{0, 1, 0, 0}))

	idx.delete([]string{"a"})

	matches, err := idx.search([]float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].id)
}

func TestAnnIndex_SearchHonorsAllowedSet(t *testing.T) {
	idx := newAnnIndex(4)
	require.NoError(t, idx.add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.add("c", []float32{0.9, 0.1, 0, 0}))

	matches, err := idx.search([]float32{1, 0, 0, 0}, 2, map[string]bool{"c": true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].id)
}

func TestAnnIndex_SaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := newAnnIndex(4)
	require.NoError(t, idx.add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.add("b", []float32{0, 1, 0, 0}))
	require.NoError(t, idx.save(path))

	reloaded := newAnnIndex(4)
	require.NoError(t, reloaded.load(path))

	matches, err := reloaded.search([]float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].id)
}

func TestAnnIndex_LoadMissingFileIsNotAnError(t *testing.T) {
	idx := newAnnIndex(4)
	err := idx.load(filepath.Join(t.TempDir(), "absent.hnsw"))
	require.NoError(t, err)
}

func TestAnnIndex_SearchOnEmptyIndexReturnsNoResults(t *testing.T) {
	idx := newAnnIndex(4)
	matches, err := idx.search([]float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
