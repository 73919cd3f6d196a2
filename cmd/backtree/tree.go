package main

import (
	"context"
	"fmt"
	"strings"

	"backtree/internal/pathtree"

	"github.com/fatih/color"
)

// Tree renders the visible slice of a fresh scan to stdout, one row per
// entry with its aggregated size and share of the total. Nothing is written
// to disk.
//
// Entries in the top decile by size are highlighted so the heavy parts stand
// out; --no-color renders them plain.
func (prog *Program) Tree(ctx context.Context, root string, include []string, exclude []string, globFile string, globs []string, noColor bool) error {
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
		MaxItems:      prog.settings.MaxItems,
		Annotate:      annotateBytes,
	})

	highlight := color.New(color.FgHiYellow, color.Bold)
	if noColor {
		highlight.DisableColor()
	}

	for _, entry := range view.Entries {
		name := entry.Pretty

		if entry.Highlight {
			prefix := entry.Node.TreePrefix()
			name = prefix + highlight.Sprint(strings.TrimPrefix(name, prefix))
		}

		fmt.Fprintf(prog.stdout, "%s %5.1f%%  %s\n",
			pathtree.HumanSize(entry.Node.TotalSize, true), 100*entry.Pct, name)
	}

	return nil
}
