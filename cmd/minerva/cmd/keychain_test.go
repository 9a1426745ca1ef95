package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michele-orsini-71/minerva/internal/config"
)

func TestKeychainList_PrintsRecordedNames(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, config.RecordCredentialName("OPENAI_API_KEY"))
	require.NoError(t, config.RecordCredentialName("GEMINI_API_KEY"))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"keychain", "list"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "OPENAI_API_KEY")
	assert.Contains(t, out.String(), "GEMINI_API_KEY")
}

func TestKeychainList_EmptyWhenNothingRecorded(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"keychain", "list"})

	require.NoError(t, root.Execute())
	assert.Empty(t, out.String())
}
