package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lanrat/extsort"
)

const tarStreamBuffer = 1000

// PathStream streams the entry names contained in a tar.gz archive, sorted
// externally when requested so archives far larger than memory stay
// listable. The error channel delivers at most one error; both channels are
// closed when the stream ends.
func (w *Writer) PathStream(ctx context.Context, archive string, sorted bool) (<-chan string, <-chan error) {
	paths := make(chan string, tarStreamBuffer)
	errs := make(chan error, 1)

	go func() {
		defer close(paths)
		defer close(errs)

		f, err := w.fs.Open(archive)
		if err != nil {
			errs <- fmt.Errorf("failed to open input file: %w", err)

			return
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			errs <- fmt.Errorf("failed to initialize gzip reader: %w", err)

			return
		}
		defer gz.Close()

		tr := tar.NewReader(gz)
		for {
			if err := ctx.Err(); err != nil {
				errs <- fmt.Errorf("failed to stream from tar: %w", err)

				return
			}

			hdr, err := tr.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- fmt.Errorf("failed to stream from tar: %w", err)

					return
				}

				break // EOF
			}

			paths <- hdr.Name
		}
	}()

	if !sorted {
		return paths, errs
	}

	return extsortStrings(ctx, paths, errs, w.extSortConfig)
}

// extsortStrings wraps [extsort.Strings] for internal use.
//
// It merges two possible error sources into a single channel:
//  1. Runtime sorting errors - any errors raised while sorting proceeds.
//  2. extErrs (optional) - errors from non-sorting work such as tar-reading.
//
// Do note that only the first error observed from these sources is sent downstream.
func extsortStrings(ctx context.Context, input <-chan string, extErrs <-chan error, config *extsort.Config) (<-chan string, <-chan error) {
	sorter, sorterOut, sorterErrs := extsort.Strings(input, config)

	if sorter != nil {
		go sorter.Sort(ctx)
	}

	mergedErrs := make(chan error, 1)
	go func() {
		defer close(mergedErrs)

		for extErrs != nil || sorterErrs != nil {
			select {
			case err, ok := <-extErrs:
				if ok && err != nil {
					mergedErrs <- err

					return
				}
				extErrs = nil // channel closed, disable case.

			case err, ok := <-sorterErrs:
				if ok && err != nil {
					mergedErrs <- err

					return
				}
				sorterErrs = nil // channel closed, disable case.
			}
		}
	}()

	return sorterOut, mergedErrs
}
