// Package archive turns a resolved selection list into a tar.gz archive, and
// streams the contents of existing archives back out for review.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"backtree/internal/pathtree"

	pgzip "github.com/klauspost/pgzip"
	"github.com/lanrat/extsort"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/afero"
)

// archiveNameFormat timestamps default archive names to the second, so
// repeated runs against the same root never collide.
const archiveNameFormat = "2006-01-02_150405"

// ErrInsufficientSpace reports that the destination cannot hold the
// uncompressed selection. The check is deliberately conservative:
// compression will need less, but running a partition full mid-archive is
// the worse failure.
var ErrInsufficientSpace = errors.New("insufficient free space at destination")

// GzipConfig is the configuration for concurrent gzip operations.
type GzipConfig struct {
	BlockSize  int // Approximate size of blocks (pgzip operations)
	BlockCount int // Amount of blocks processing in parallel (pgzip operations)
	Level      int // Target level for compression (-1: default, 0: none to 9: highest)
}

// GzipConfigDefault is the gzip configuration used when none is supplied.
//
//nolint:mnd
var GzipConfigDefault = GzipConfig{
	BlockSize:  1 << 20,               // Approximate size of blocks
	BlockCount: runtime.GOMAXPROCS(0), // Amount of blocks processing in parallel
	Level:      pgzip.DefaultCompression,
}

// ExtSortConfigDefault is the external-sort configuration used when none is
// supplied.
//
//nolint:mnd
var ExtSortConfigDefault = extsort.Config{
	ChunkSize:          100_000,                       // Records per chunk (default: 1M)
	NumWorkers:         min(4, runtime.GOMAXPROCS(0)), // Parallel sorting/merging workers (default: 2)
	ChanBuffSize:       1,                             // Channel buffer size (default: 1)
	SortedChanBuffSize: 1000,                          // Output channel buffer (default: 1000)
	TempFilesDir:       "",                            // Temporary files directory (default: intelligent selection)
}

// Result is the accounting of one archive run. Directories count toward
// neither side; every file lands in exactly one of added or skipped.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	BytesAdded   int64
	BytesSkipped int64
	ArchiveBytes int64
}

// Writer archives selection lists onto a filesystem.
type Writer struct {
	fs     afero.Fs
	stdout io.Writer
	log    pathtree.Logger

	gzipConfig    *GzipConfig
	extSortConfig *extsort.Config
}

// NewWriter returns a pointer to a new [Writer]. Nil arguments fall back to
// the operating-system filesystem, standard output, a no-op logger and the
// default configurations.
func NewWriter(fs afero.Fs, stdout io.Writer, log pathtree.Logger, gzipConfig *GzipConfig, extsortConfig *extsort.Config) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if log == nil {
		log = pathtree.NewNopLogger()
	}

	if gzipConfig == nil {
		cfg := GzipConfigDefault
		gzipConfig = &cfg
	}

	if extsortConfig == nil {
		cfg := ExtSortConfigDefault
		extsortConfig = &cfg
	}

	return &Writer{
		fs:            fs,
		stdout:        stdout,
		log:           log,
		gzipConfig:    gzipConfig,
		extSortConfig: extsortConfig,
	}
}

// DefaultName returns the archive path for a root when none is chosen: the
// root's base name plus a timestamp, placed next to the root itself.
func DefaultName(root string, at time.Time) string {
	root = filepath.Clean(root)

	name := filepath.Base(root) + "_" + at.Format(archiveNameFormat) + ".tar.gz"

	return filepath.Join(filepath.Dir(root), name)
}

// EnsureSpace verifies the destination directory's partition can hold need
// bytes. The check only applies to the real filesystem; in-memory
// filesystems have no partition to fill.
func (w *Writer) EnsureSpace(destDir string, need int64) error {
	if need <= 0 {
		return nil
	}

	if _, ok := w.fs.(*afero.OsFs); !ok {
		return nil
	}

	usage, err := disk.Usage(destDir)
	if err != nil {
		return fmt.Errorf("failed to check free space for %s: %w", destDir, err)
	}

	if usage.Free < uint64(need) {
		return fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientSpace,
			pathtree.HumanSize(need, false),
			pathtree.HumanSize(int64(usage.Free), false))
	}

	return nil
}

// Create archives every selected item into a new tar.gz at output. The
// output file must not exist yet and is removed again when the run fails or
// is cancelled mid-way.
//
// Files are streamed in list order; selected directories get explicit
// headers so empty ancestors stay browsable. Every file produces one
// accounting line on stdout, `+` for added and `-` for skipped, mirrored to
// the run log.
func (w *Writer) Create(ctx context.Context, output string, items []pathtree.Item) (*Result, error) {
	var creationDone bool

	out, err := w.fs.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	defer func() {
		if !creationDone {
			_ = w.fs.Remove(output)
		}
	}()
	defer out.Close()

	gw, err := pgzip.NewWriterLevel(out, w.gzipConfig.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gzip writer: %w", err)
	}
	defer gw.Close()

	if err := gw.SetConcurrency(w.gzipConfig.BlockSize, w.gzipConfig.BlockCount); err != nil {
		return nil, fmt.Errorf("failed to set gzip writer settings: %w", err)
	}

	tw := tar.NewWriter(gw)
	defer tw.Close()

	res := &Result{}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to archive %s: %w", item.RelPath, err)
		}

		if item.RelPath == "." {
			continue // the root needs no entry of its own
		}

		if item.Backup {
			if err := w.add(tw, item); err != nil {
				return nil, err
			}
		}

		if item.IsDir {
			continue
		}

		size := fmt.Sprintf("(%s)", pathtree.HumanSize(item.Size, true))

		if item.Backup {
			res.FilesAdded++
			res.BytesAdded += item.Size

			fmt.Fprintf(w.stdout, "  + %s %s\n", size, item.RelPath)
			w.log.Info("file added", "path", item.RelPath, "size", item.Size)
		} else {
			res.FilesSkipped++
			res.BytesSkipped += item.Size

			fmt.Fprintf(w.stdout, "  - %s %s\n", size, item.RelPath)
			w.log.Info("file skipped", "path", item.RelPath, "size", item.Size)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize output file: %w", err)
	}

	info, err := w.fs.Stat(output)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}
	res.ArchiveBytes = info.Size()

	creationDone = true

	return res, nil
}

// add writes one tar entry. The entry is stat'ed fresh so the header
// reflects the file as it is archived, not as it was scanned.
func (w *Writer) add(tw *tar.Writer, item pathtree.Item) error {
	info, err := w.fs.Stat(item.AbsPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", item.AbsPath, err)
	}

	hdr := &tar.Header{
		Name:    filepath.ToSlash(item.RelPath),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}

	if item.IsDir {
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", item.RelPath, err)
		}

		return nil
	}

	hdr.Typeflag = tar.TypeReg
	hdr.Size = info.Size()

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", item.RelPath, err)
	}

	f, err := w.fs.Open(item.AbsPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", item.AbsPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", item.AbsPath, err)
	}

	return nil
}
