package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"backtree/internal/archive"
	"backtree/internal/pathtree"
	"backtree/internal/planfile"
)

// Backup archives the currently selected paths under root into a fresh
// tar.gz tarball.
//
// The stored selection record is reconciled onto a fresh scan first, so
// paths that appeared since the last build inherit the decision of their
// nearest recorded ancestor. The archive is placed next to the root unless
// outDir overrides the destination; the run is refused when the destination
// partition lacks the space for the uncompressed selection.
func (prog *Program) Backup(ctx context.Context, root string, outDir string) error {
	if err := prog.settings.Validate(); err != nil {
		return err
	}

	root, _, _, err := prog.resolveSelection(root, nil, nil)
	if err != nil {
		return err
	}

	decisions, err := planfile.Load(prog.fs, root)
	if err != nil {
		return err
	}

	tree, err := pathtree.Build(ctx, prog.fs, root, pathtree.Options{
		Order: prog.settings.TreeOrder(),
	})
	if err != nil {
		return err
	}

	decisions.Apply(tree)

	items := tree.Items()

	var selected int64

	for _, item := range items {
		if !item.IsDir && item.Backup {
			selected += item.Size
		}
	}

	output := archive.DefaultName(root, time.Now())
	if outDir != "" {
		output = filepath.Join(outDir, filepath.Base(output))
	}

	fmt.Fprintf(prog.stdout, "Creating archive for %q with a size (uncompressed) of %s\n",
		root, pathtree.HumanSize(selected, false))
	fmt.Fprintf(prog.stdout, "The archive will be written to %q\n", output)

	if err := prog.confirm("Continue?"); err != nil {
		return err
	}

	log, closeLog, err := prog.newRunLogger(root)
	if err != nil {
		return err
	}
	defer closeLog()

	w := archive.NewWriter(prog.fs, prog.stdout, log, prog.gzipConfig, prog.extSortConfig)

	if err := w.EnsureSpace(filepath.Dir(output), selected); err != nil {
		log.Error("backup refused", "error", err.Error())

		return err
	}

	fmt.Fprintf(prog.stdout, "%s  creating %s\n", time.Now().Format(timestampFormat), output)
	log.Info("archive started", "root", root, "output", output)

	res, err := w.Create(ctx, output, items)
	if err != nil {
		log.Error("archive failed", "error", err.Error())

		return err
	}

	total := tree.FileCount()
	width := len(strconv.Itoa(total))

	fmt.Fprintln(prog.stdout, "              '+': File was included   '-': File was skipped")
	fmt.Fprintf(prog.stdout, "From %d files / %s in %s there were\n",
		total, pathtree.HumanSize(tree.TotalSize(), false), root)

	line := fmt.Sprintf("     %*d files / %s added to the archive",
		width, res.FilesAdded, pathtree.HumanSize(res.BytesAdded, false))

	if res.BytesAdded > 0 {
		ratio := 100 * float64(res.ArchiveBytes) / float64(res.BytesAdded)
		line += fmt.Sprintf(" and compressed down to %s (%.1f %%)",
			pathtree.HumanSize(res.ArchiveBytes, false), ratio)
	}

	fmt.Fprintln(prog.stdout, line)

	log.Info("archive finished",
		"files_added", res.FilesAdded,
		"files_skipped", res.FilesSkipped,
		"bytes_added", res.BytesAdded,
		"bytes_skipped", res.BytesSkipped,
		"archive_bytes", res.ArchiveBytes,
	)

	return nil
}
