// Package planfile persists backup decisions as a hand-editable delimited
// table colocated with the scanned root, and loads them back into a nested
// lookup structure for reconciliation against a freshly built tree.
//
// Only two columns are consumed on reload: the backup flag and the canonical
// root-relative path. Everything else is decoration for the person editing
// the file.
package planfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"backtree/internal/pathtree"

	"github.com/spf13/afero"
)

// FileName is the decision record's name inside the scanned root.
const FileName = ".backtree.cfg"

// maxRecordLine bounds a single record line; beyond it the file is treated
// as corrupt rather than silently truncated.
const maxRecordLine = 1 << 20

var (
	// ErrConfigMissing reports that no decision record exists for a root.
	ErrConfigMissing = errors.New("no decision record found")

	// ErrConfigCorrupt reports a decision record that cannot be trusted
	// wholesale. A partially trusted record risks archiving the wrong
	// content, so nothing of it is used.
	ErrConfigCorrupt = errors.New("decision record is corrupt")
)

// PathFor returns the location of the decision record for a root.
func PathFor(root string) string {
	return filepath.Join(root, FileName)
}

// Save writes one record per visible entry of the view, preceded by a header
// line. Size, percentage and pretty columns are padded for column alignment;
// the canonical path column is written undecorated so names with leading or
// trailing whitespace survive the round trip.
func Save(fsys afero.Fs, root string, view *pathtree.View) error {
	f, err := fsys.Create(PathFor(root))
	if err != nil {
		return fmt.Errorf("failed to create decision record: %w", err)
	}

	w := bufio.NewWriter(f)

	width := view.NameWidth
	writeRecord(w, []string{
		"    size ",
		"  size% ",
		" backup ",
		" " + padRunes("path (human readable)", width) + " ",
		"path (read from script)",
	})

	for _, e := range view.Entries {
		flag := 0
		if e.Node.Backup {
			flag = 1
		}

		writeRecord(w, []string{
			" " + e.Node.DisplaySize() + " ",
			fmt.Sprintf(" %5.1f%% ", 100*e.Pct),
			fmt.Sprintf("      %d ", flag),
			" " + padRunes(e.Pretty, width) + " ",
			filepath.ToSlash(e.Node.Rel),
		})
	}

	if err := w.Flush(); err != nil {
		f.Close()

		return fmt.Errorf("failed to write decision record: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write decision record: %w", err)
	}

	return nil
}

func writeRecord(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteRune(fieldDelimiter)
		}
		w.WriteString(escapeField(field))
	}
	w.WriteString("\n")
}

func padRunes(s string, width int) string {
	if pad := width - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}

	return s
}

// Load reads the decision record for a root. A missing file yields
// ErrConfigMissing; any row that cannot be trusted yields ErrConfigCorrupt.
func Load(fsys afero.Fs, root string) (*Decisions, error) {
	f, err := fsys.Open(PathFor(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s: run 'backtree build' first", ErrConfigMissing, root)
		}

		return nil, fmt.Errorf("failed to open decision record: %w", err)
	}
	defer f.Close()

	d, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PathFor(root), err)
	}

	return d, nil
}

func parse(r io.Reader) (*Decisions, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read decision record: %w", err)
		}

		return nil, fmt.Errorf("%w: empty file", ErrConfigCorrupt)
	}

	d := &Decisions{root: &level{}}
	rootSeen := false

	lineNo := 1
	for sc.Scan() {
		lineNo++

		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := splitRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrConfigCorrupt, lineNo, err)
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: line %d: expected 5 fields, got %d", ErrConfigCorrupt, lineNo, len(fields))
		}

		flag := strings.TrimSpace(fields[2])
		on, err := strconv.ParseBool(flag)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad backup flag %q", ErrConfigCorrupt, lineNo, flag)
		}

		rel := fields[4]
		if rel == "." {
			d.root.on = on
			rootSeen = true

			continue
		}
		if !filepath.IsLocal(rel) || rel != filepath.ToSlash(filepath.Clean(rel)) {
			return nil, fmt.Errorf("%w: line %d: path %q does not resolve under the root", ErrConfigCorrupt, lineNo, rel)
		}

		d.set(strings.Split(rel, "/"), on)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decision record: %w", err)
	}
	if !rootSeen {
		return nil, fmt.Errorf("%w: no record for the root itself", ErrConfigCorrupt)
	}

	return d, nil
}

// Discard removes the decision record for a root. It reports whether a
// record existed.
func Discard(fsys afero.Fs, root string) (bool, error) {
	path := PathFor(root)

	if _, err := fsys.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat decision record: %w", err)
	}

	if err := fsys.Remove(path); err != nil {
		return false, fmt.Errorf("failed to delete decision record: %w", err)
	}

	return true, nil
}

// Decisions is the stored decision set, keyed by relative-path components.
// Every level carries its own flag, so a lookup that runs out of stored
// levels falls back to the nearest stored ancestor.
type Decisions struct {
	root *level
}

type level struct {
	on       bool
	children map[string]*level
}

// set stores a flag at the exact addressed level, fabricating intermediate
// levels as needed. An intermediate fabricated for an out-of-order row is
// seeded with that row's flag; a later row addressing the level directly
// overwrites it.
func (d *Decisions) set(parts []string, on bool) {
	lvl := d.root

	for _, name := range parts {
		child, ok := lvl.children[name]
		if !ok {
			child = &level{on: on}
			if lvl.children == nil {
				lvl.children = make(map[string]*level)
			}
			lvl.children[name] = child
		}

		lvl = child
	}

	lvl.on = on
}

// Lookup resolves the decision for a relative path given as components. The
// walk descends stored levels and stops at the first missing component; the
// decision of the deepest level reached wins. Entries created after the
// record was written therefore inherit their nearest recorded ancestor's
// decision.
func (d *Decisions) Lookup(parts []string) bool {
	lvl := d.root
	on := lvl.on

	for _, name := range parts {
		child, ok := lvl.children[name]
		if !ok {
			break
		}

		lvl = child
		on = lvl.on
	}

	return on
}

// Apply overwrites every node's decision with the stored one, resolved per
// Lookup. Aggregated directory decisions are replaced along with the rest;
// the record is the authority once it exists.
func (d *Decisions) Apply(t *pathtree.Tree) {
	for _, n := range t.Nodes {
		n.Backup = d.Lookup(n.RelParts())
	}
}
