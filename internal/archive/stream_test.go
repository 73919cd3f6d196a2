package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// writeTarGz crafts a tar.gz with the given entry names, "/"-suffixed names
// becoming directory headers.
func writeTarGz(t *testing.T, fs afero.Fs, path string, entries []string) {
	t.Helper()

	f, err := fs.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gzw := gzip.NewWriter(f)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	for _, entry := range entries {
		hdr := &tar.Header{
			Name: entry,
			Mode: 0o644,
		}

		if strings.HasSuffix(entry, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(entry))
		}

		require.NoError(t, tw.WriteHeader(hdr))

		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	require.NoError(t, f.Close())
}

// drainStream collects all streamed paths and the first raised error.
func drainStream(paths <-chan string, errs <-chan error) ([]string, error) {
	var got []string

	for path := range paths {
		got = append(got, path)
	}

	for err := range errs {
		if err != nil {
			return got, err
		}
	}

	return got, nil
}

// Expectation: Unsorted streaming should reproduce the archive's own entry order.
func Test_Writer_PathStream_Unsorted_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTarGz(t, fs, "/out.tar.gz", []string{"z.txt", "a.txt", "dir/", "dir/b.txt"})

	w := NewWriter(fs, io.Discard, nil, nil, nil)

	paths, errs := w.PathStream(t.Context(), "/out.tar.gz", false)
	got, err := drainStream(paths, errs)
	require.NoError(t, err)
	require.Equal(t, []string{"z.txt", "a.txt", "dir/", "dir/b.txt"}, got)
}

// Expectation: Sorted streaming should emit the entries in lexicographical order.
func Test_Writer_PathStream_Sorted_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTarGz(t, fs, "/out.tar.gz", []string{"z.txt", "a.txt", "dir/", "dir/b.txt"})

	w := NewWriter(fs, io.Discard, nil, nil, nil)

	paths, errs := w.PathStream(t.Context(), "/out.tar.gz", true)
	got, err := drainStream(paths, errs)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "dir/", "dir/b.txt", "z.txt"}, got)
}

// Expectation: A context cancellation should surface on the error channel.
func Test_Writer_PathStream_CtxCancel_Error(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	fs := afero.NewMemMapFs()
	writeTarGz(t, fs, "/out.tar.gz", []string{"z.txt", "a.txt"})

	cancel()

	w := NewWriter(fs, io.Discard, nil, nil, nil)

	paths, errs := w.PathStream(ctx, "/out.tar.gz", false)
	_, err := drainStream(paths, errs)
	require.ErrorIs(t, err, context.Canceled)
}

// Expectation: A missing archive should surface on the error channel.
func Test_Writer_PathStream_MissingArchive_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	w := NewWriter(fs, io.Discard, nil, nil, nil)

	paths, errs := w.PathStream(t.Context(), "/nope.tar.gz", false)
	_, err := drainStream(paths, errs)
	require.Error(t, err)
}

// Expectation: A file that is not gzip data should surface on the error channel.
func Test_Writer_PathStream_Corrupt_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out.tar.gz", []byte("not a tarball"), 0o644))

	w := NewWriter(fs, io.Discard, nil, nil, nil)

	paths, errs := w.PathStream(t.Context(), "/out.tar.gz", false)
	_, err := drainStream(paths, errs)
	require.Error(t, err)
}
