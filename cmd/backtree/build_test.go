package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"backtree/internal/planfile"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Expectation: The intent summary should name the root, the thresholds and every rule before asking.
func Test_Program_Build_Messages_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedTree(t, fs)

	var out bytes.Buffer

	prog := NewProgram(fs, strings.NewReader(""), &out, io.Discard, nil, nil, nil)

	err := prog.Build(t.Context(), "/data/src", []string{"/data/src/docs"}, []string{"/data/src/media"}, "", []string{"**/*.tmp"})
	require.NoError(t, err)

	require.Contains(t, out.String(), "Building backup selection for \"/data/src\"")
	require.Contains(t, out.String(), "...recording only entries above 1 MB.")
	require.Contains(t, out.String(), "...including \"/data/src/docs\"")
	require.Contains(t, out.String(), "...excluding \"/data/src/media\"")
	require.Contains(t, out.String(), "...excluding matches of \"**/*.tmp\"")
	require.Contains(t, out.String(), "Scanned 3 files with a total size of ")
}

// Expectation: A declined confirmation should abort before the record is written.
func Test_Program_Build_DeclinedConfirm_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedTree(t, fs)

	prog := interactiveProgram(fs, "n\n", io.Discard)

	require.ErrorIs(t, prog.Build(t.Context(), "/data/src", nil, nil, "", nil), ErrAborted)

	_, err := fs.Stat("/data/src/.backtree.cfg")
	require.Error(t, err)
}

// Expectation: Patterns from a pattern file should deselect their matches in the written record.
func Test_Program_Build_GlobsFrom_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedTree(t, fs)

	require.NoError(t, afero.WriteFile(fs, "/globs.txt", []byte("# media\n**/*.mp4\n"), 0o644))

	prog := NewProgram(fs, strings.NewReader(""), io.Discard, io.Discard, nil, nil, nil)
	prog.settings.ShowMB = 0

	require.NoError(t, prog.Build(t.Context(), "/data/src", nil, nil, "/globs.txt", nil))

	decisions, err := planfile.Load(fs, "/data/src")
	require.NoError(t, err)

	require.False(t, decisions.Lookup([]string{"media", "clip.mp4"}))
	require.True(t, decisions.Lookup([]string{"docs", "guide.md"}))
}
