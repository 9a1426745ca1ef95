package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNotesFilePrintsCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"title": "First Note", "markdown": "# hi", "size": 4, "modificationDate": "2026-01-01T00:00:00Z", "creationDate": "2026-01-01T00:00:00Z"}
	]`), 0o644))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"validate", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "1 notes valid")
}

func TestValidate_MissingTitleFieldErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"markdown": "x", "size": 1, "modificationDate": "2026-01-01T00:00:00Z"}]`), 0o644))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"validate", path})

	assert.Error(t, root.Execute())
}

func TestValidate_NonISOModificationDateErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title": "A", "markdown": "x", "size": 1, "modificationDate": "2026-01-01"}]`), 0o644))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"validate", path})

	assert.Error(t, root.Execute())
}
