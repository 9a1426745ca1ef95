package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndexConfig(t *testing.T, dir string) string {
	t.Helper()
	notesPath := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(notesPath, []byte(`[
		{"title": "First Note", "markdown": "# hi", "size": 4, "modificationDate": "2026-01-01T00:00:00Z", "creationDate": "2026-01-01T00:00:00Z"}
	]`), 0o644))

	configPath := filepath.Join(dir, "index.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"chromadb_path": "store",
		"collection": {"name": "notes", "description": "test notes", "json_file": "notes.json"},
		"provider": {"kind": "ollama", "base_url": "http://127.0.0.1:1", "embedding_model": "nomic-embed-text"}
	}`), 0o644))
	return configPath
}

func TestIndex_DryRunReportsUnavailableProviderWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	configPath := writeIndexConfig(t, dir)

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"index", "--config", configPath, "--dry-run"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "provider unavailable")

	_, err := os.Stat(filepath.Join(dir, "store"))
	assert.True(t, os.IsNotExist(err), "dry run must not create the vector store directory")
}

func TestIndex_MissingConfigFlagErrors(t *testing.T) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"index"})

	assert.Error(t, root.Execute())
}
