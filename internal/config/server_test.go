package config

import (
	"path/filepath"
	"testing"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "server.json", map[string]any{
		"chromadb_path":       "data/chroma",
		"default_max_results": 10,
	})

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data/chroma"), cfg.ChromaDBPath)
	assert.Equal(t, 10, cfg.DefaultMaxResults)
}

func TestLoadServerConfig_MaxResultsOutOfRangeFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "server.json", map[string]any{
		"chromadb_path":       "data/chroma",
		"default_max_results": 25,
	})

	_, err := LoadServerConfig(path)
	require.Error(t, err)
	assert.Equal(t, minerrors.ErrCodeConfigInvalid, minerrors.GetCode(err))
}

func TestLoadServerConfig_ZeroMaxResultsFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "server.json", map[string]any{
		"chromadb_path": "data/chroma",
	})

	_, err := LoadServerConfig(path)
	require.Error(t, err)
}
