package main

import (
	"context"
	"fmt"

	"backtree/internal/pathtree"
	"backtree/internal/planfile"
)

// Build scans the directory tree under root and writes a fresh backup
// selection record for it.
//
// Include and exclude paths pin the decision for their subtree, glob patterns
// deselect matching paths anywhere. What is about to happen is summarized on
// stdout first, pending the user's confirmation. The record rows follow the
// configured show and depth thresholds; the decision of a folded-away entry
// remains recoverable through its nearest recorded ancestor.
func (prog *Program) Build(ctx context.Context, root string, include []string, exclude []string, globFile string, globs []string) error {
	if err := prog.settings.Validate(); err != nil {
		return err
	}

	root, include, exclude, err := prog.resolveSelection(root, include, exclude)
	if err != nil {
		return err
	}

	patterns, err := prog.mergeGlobs(globFile, globs)
	if err != nil {
		return err
	}

	fmt.Fprintf(prog.stdout, "Building backup selection for %q\n", root)

	if prog.settings.ShowMB > 0 {
		fmt.Fprintf(prog.stdout, "...recording only entries above %v MB.\n", prog.settings.ShowMB)
	}

	if prog.settings.FileMaxMB > 0 {
		fmt.Fprintf(prog.stdout, "...deselecting files above %v MB.\n", prog.settings.FileMaxMB)
	}

	for _, path := range include {
		fmt.Fprintf(prog.stdout, "...including %q\n", path)
	}

	for _, path := range exclude {
		fmt.Fprintf(prog.stdout, "...excluding %q\n", path)
	}

	for _, pattern := range patterns {
		fmt.Fprintf(prog.stdout, "...excluding matches of %q\n", pattern)
	}

	if err := prog.confirm("Continue?"); err != nil {
		return err
	}

	tree, err := pathtree.Build(ctx, prog.fs, root, pathtree.Options{
		Include:      include,
		Exclude:      exclude,
		ExcludeGlobs: patterns,
		FileMax:      prog.settings.FileMaxBytes(),
		Order:        prog.settings.TreeOrder(),
	})
	if err != nil {
		return err
	}

	view := pathtree.NewView(tree, pathtree.ViewOptions{
		ShowThreshold: prog.settings.ShowBytes(),
		MaxDepth:      prog.settings.MaxDepth,
		Annotate:      annotateBytes,
	})

	if err := planfile.Save(prog.fs, root, view); err != nil {
		return err
	}

	fmt.Fprintf(prog.stdout, "Backup selection written to %s\n", planfile.PathFor(root))
	fmt.Fprintf(prog.stdout, "Scanned %d files with a total size of %s.\n",
		tree.FileCount(), pathtree.HumanSize(tree.TotalSize(), false))

	return nil
}
