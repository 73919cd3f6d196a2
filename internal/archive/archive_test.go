package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"backtree/internal/pathtree"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// selectionItems builds the fixture selection: /src with b/c.txt (5 B) and
// a.txt (3 B) selected, skip/d.bin (5 B) deselected.
func selectionItems(t *testing.T, fs afero.Fs) []pathtree.Item {
	t.Helper()

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("aaa"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/b/c.txt", []byte("ccccc"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/skip/d.bin", []byte("ddddd"), 0o644))

	tree, err := pathtree.Build(t.Context(), fs, "/src", pathtree.Options{
		Exclude: []string{"/src/skip"},
	})
	require.NoError(t, err)

	return tree.Items()
}

// readArchive decodes a tar.gz from the filesystem into entry names and
// regular-file contents.
func readArchive(t *testing.T, fs afero.Fs, path string) ([]string, map[string]string) {
	t.Helper()

	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)

	tr := tar.NewReader(gzr)

	var names []string
	contents := map[string]string{}

	for {
		hdr, err := tr.Next()

		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		names = append(names, hdr.Name)

		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			contents[hdr.Name] = string(data)
		}
	}

	return names, contents
}

// Expectation: Selected files and directories should land in the archive, deselected ones only in the accounting.
func Test_Writer_Create_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	items := selectionItems(t, fs)

	var stdoutBuf bytes.Buffer

	w := NewWriter(fs, &stdoutBuf, nil, nil, nil)
	res, err := w.Create(t.Context(), "/out.tar.gz", items)
	require.NoError(t, err)

	names, contents := readArchive(t, fs, "/out.tar.gz")
	require.Equal(t, []string{"b/", "b/c.txt", "a.txt"}, names)
	require.Equal(t, "ccccc", contents["b/c.txt"])
	require.Equal(t, "aaa", contents["a.txt"])

	require.Equal(t, 2, res.FilesAdded)
	require.Equal(t, 1, res.FilesSkipped)
	require.Equal(t, int64(8), res.BytesAdded)
	require.Equal(t, int64(5), res.BytesSkipped)
	require.Positive(t, res.ArchiveBytes)

	require.Equal(t,
		"  + (  5   B) b/c.txt\n"+
			"  - (  5   B) skip/d.bin\n"+
			"  + (  3   B) a.txt\n",
		stdoutBuf.String())
}

// Expectation: A context cancellation should be respected and the output file removed.
func Test_Writer_Create_CtxCancel_Error(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	fs := afero.NewMemMapFs()
	items := selectionItems(t, fs)

	cancel()

	w := NewWriter(fs, io.Discard, nil, nil, nil)
	_, err := w.Create(ctx, "/out.tar.gz", items)
	require.ErrorIs(t, err, context.Canceled)

	_, err = fs.Stat("/out.tar.gz")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// Expectation: An already existing output file should fail the run and stay untouched.
func Test_Writer_Create_ExistingOutput_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	items := selectionItems(t, fs)

	require.NoError(t, afero.WriteFile(fs, "/out.tar.gz", []byte("precious"), 0o644))

	w := NewWriter(fs, io.Discard, nil, nil, nil)
	_, err := w.Create(t.Context(), "/out.tar.gz", items)
	require.Error(t, err)

	content, err := afero.ReadFile(fs, "/out.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "precious", string(content))
}

// Expectation: An invalid compressor configuration should raise an error at runtime and the output file be removed.
func Test_Writer_Create_InvalidConfig_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	items := selectionItems(t, fs)

	cfg := GzipConfig{
		BlockSize:  -1,
		BlockCount: -1,
		Level:      GzipConfigDefault.Level,
	}

	w := NewWriter(fs, io.Discard, nil, &cfg, nil)
	_, err := w.Create(t.Context(), "/out.tar.gz", items)
	require.Error(t, err)

	_, statErr := fs.Stat("/out.tar.gz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// Expectation: An invalid compression level should raise an error at runtime and the output file be removed.
func Test_Writer_Create_InvalidLevel_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	items := selectionItems(t, fs)

	cfg := GzipConfigDefault
	cfg.Level = 99

	w := NewWriter(fs, io.Discard, nil, &cfg, nil)
	_, err := w.Create(t.Context(), "/out.tar.gz", items)
	require.Error(t, err)

	_, statErr := fs.Stat("/out.tar.gz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// Expectation: A selected file that vanished since the scan should fail the run with the offending path.
func Test_Writer_Create_MissingSource_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	items := []pathtree.Item{
		{AbsPath: "/src/gone.txt", RelPath: "gone.txt", Size: 3, Backup: true},
	}

	w := NewWriter(fs, io.Discard, nil, nil, nil)
	_, err := w.Create(t.Context(), "/out.tar.gz", items)
	require.Error(t, err)
	require.Contains(t, err.Error(), "/src/gone.txt")

	_, statErr := fs.Stat("/out.tar.gz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// Expectation: The default archive name should sit next to the root and carry the timestamp.
func Test_DefaultName_Success(t *testing.T) {
	at := time.Date(2026, 8, 24, 13, 45, 9, 0, time.UTC)

	require.Equal(t, "/home/user/src_2026-08-24_134509.tar.gz", DefaultName("/home/user/src", at))
	require.Equal(t, "src_2026-08-24_134509.tar.gz", DefaultName("src", at))
	require.Equal(t, "/home/user/src_2026-08-24_134509.tar.gz", DefaultName("/home/user/src/", at))
}

// Expectation: The free-space guard should not apply to in-memory filesystems or empty selections.
func Test_Writer_EnsureSpace_Skipped_Success(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), io.Discard, nil, nil, nil)

	require.NoError(t, w.EnsureSpace("/anywhere", 1<<60))
	require.NoError(t, w.EnsureSpace("/anywhere", 0))
	require.NoError(t, w.EnsureSpace("/anywhere", -5))
}
