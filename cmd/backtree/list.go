package main

import (
	"context"
	"fmt"

	"backtree/internal/archive"
)

// List produces a listing of all paths contained in a tarball.
//
// The input parameter is the path of the tarball file to list. If the sort
// parameter is true, the output is sorted alphabetically; otherwise the
// original archive order is preserved. The ctx parameter controls early
// cancellation.
func (prog *Program) List(ctx context.Context, input string, sort bool) error {
	w := archive.NewWriter(prog.fs, prog.stdout, nil, prog.gzipConfig, prog.extSortConfig)

	paths, errs := w.PathStream(ctx, input, sort)

	for path := range paths {
		fmt.Fprintln(prog.stdout, path)
	}

	for err := range errs {
		if err != nil {
			return fmt.Errorf("failure during listing: %w", err)
		}
	}

	return nil
}
