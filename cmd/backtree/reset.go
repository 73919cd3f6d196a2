package main

import (
	"fmt"

	"backtree/internal/planfile"
)

// Reset deletes the stored backup selection record under root, leaving
// everything else untouched.
func (prog *Program) Reset(root string) error {
	root, _, _, err := prog.resolveSelection(root, nil, nil)
	if err != nil {
		return err
	}

	removed, err := planfile.Discard(prog.fs, root)
	if err != nil {
		return err
	}

	if removed {
		fmt.Fprintf(prog.stdout, "Successfully deleted backup selection: %s\n", planfile.PathFor(root))
	} else {
		fmt.Fprintf(prog.stdout, "Backup selection doesn't exist: %s\n", planfile.PathFor(root))
	}

	return nil
}
