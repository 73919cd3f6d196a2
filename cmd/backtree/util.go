package main

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
)

// confirm asks the user to approve the described action, reading answers
// from stdin until one is conclusive. Prompts are skipped for
// non-interactive runs and when --yes was given.
func (prog *Program) confirm(prompt string) error {
	if prog.assumeYes || !prog.interactive {
		return nil
	}

	reader := bufio.NewReader(prog.stdin)

	for {
		fmt.Fprintf(prog.stdout, "%s [y/n] ", prompt)

		line, err := reader.ReadString('\n')

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return nil
		case "n", "no":
			return ErrAborted
		}

		if err != nil {
			return ErrAborted // stdin drained without a conclusive answer
		}
	}
}

// resolveSelection absolutizes the root and the include and exclude rule
// paths, with relative rule paths anchored at the root. Every path must
// exist.
func (prog *Program) resolveSelection(root string, include []string, exclude []string) (string, []string, []string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	info, err := prog.fs.Stat(absRoot)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to scan %s: %w", absRoot, err)
	}

	if !info.IsDir() {
		return "", nil, nil, fmt.Errorf("failed to scan %s: not a directory", absRoot)
	}

	resolvedInclude, err := prog.resolveRules(absRoot, include)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to resolve include path: %w", err)
	}

	resolvedExclude, err := prog.resolveRules(absRoot, exclude)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to resolve exclude path: %w", err)
	}

	return absRoot, resolvedInclude, resolvedExclude, nil
}

func (prog *Program) resolveRules(root string, paths []string) ([]string, error) {
	resolved := make([]string, 0, len(paths))

	for _, path := range paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}

		path = filepath.Clean(path)

		if _, err := prog.fs.Stat(path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		resolved = append(resolved, path)
	}

	return resolved, nil
}

// mergeGlobs combines the always-applied settings patterns, patterns read
// from an optional pattern file (one per line, '#' comments allowed) and the
// per-run flag patterns, in that order.
func (prog *Program) mergeGlobs(globFile string, globs []string) ([]string, error) {
	merged := append([]string{}, prog.settings.Exclude...)

	if globFile != "" {
		file, err := prog.fs.Open(globFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open exclude pattern file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			merged = append(merged, line)
		}

		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed reading exclude pattern file: %w", err)
		}
	}

	return append(merged, globs...), nil
}
