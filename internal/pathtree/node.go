// Package pathtree builds an in-memory mirror of a directory tree, with
// aggregated sizes, file counts and a per-entry backup decision.
//
// A tree is produced by [Build] in a single depth-first filesystem pass.
// Decisions are seeded from include/exclude rules and a file-size ceiling at
// construction time and propagate upward: a directory is selected exactly
// when something underneath it is. The [View] type reduces a full tree to the
// bounded subset worth showing to a human; it never changes decisions.
package pathtree

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Tree-drawing fragments for pretty names. A node renders its own connector
// followed by its name; every ancestor between it and the root contributes one
// column, open while that ancestor still has siblings below it.
const (
	connectorMiddle = "├─ "
	connectorLast   = "└─ "
	columnOpen      = "│  "
	columnClosed    = "   "
)

// Node is a single filesystem entry (file or directory) in a scanned tree.
//
// Path, Rel, IsDir, Size, Depth and IsLast are fixed once the node is
// constructed. TotalSize, FileCount and Backup aggregate upward while the
// remainder of the tree is built, and Backup is overwritten wholesale when a
// stored decision record is reconciled onto a fresh tree.
type Node struct {
	Path   string // absolute path of the entry
	Rel    string // path relative to the tree root; "." for the root itself
	Name   string // base name of the entry
	IsDir  bool
	Size   int64 // own size in bytes; always 0 for directories
	Depth  int   // 0 for the root
	IsLast bool  // last entry in its parent's ordered child sequence

	TotalSize int64 // own size plus the sizes of all descendants
	FileCount int   // number of files at or below this node
	Backup    bool  // include this entry in the backup

	Explicit bool // path is literally present in the include or exclude set

	Parent   *Node
	Children []*Node
}

// RelParts returns the relative path of the node split into its components,
// ordered root to leaf. The root node yields no components.
func (n *Node) RelParts() []string {
	if n.Rel == "." {
		return nil
	}

	return strings.Split(filepath.ToSlash(n.Rel), "/")
}

// DisplaySize returns the aggregated size in the fixed-width human form used
// for tabular output.
func (n *Node) DisplaySize() string {
	return HumanSize(n.TotalSize, true)
}

// DisplayName returns the human-facing name of the node: the base name with a
// trailing separator for directories (the root renders as a bare separator).
// Unless basic is requested, a size annotation is appended when the aggregate
// exceeds the annotate threshold, and directories carry their file count.
func (n *Node) DisplayName(annotate int64, basic bool) string {
	var b strings.Builder

	if n.Depth > 0 {
		b.WriteString(n.Name)
	}
	if n.IsDir {
		b.WriteString("/")
	}

	if basic {
		return b.String()
	}

	if annotate > 0 && n.TotalSize > annotate {
		b.WriteString(" ")
		b.WriteString(n.DisplaySize())
	}
	if n.IsDir {
		fmt.Fprintf(&b, " (%d files)", n.FileCount)
	}

	return b.String()
}

// TreePrefix returns the tree-drawing prefix for the node: its own connector
// preceded by one column per ancestor. The root has no prefix.
func (n *Node) TreePrefix() string {
	if n.Parent == nil {
		return ""
	}

	connector := connectorMiddle
	if n.IsLast {
		connector = connectorLast
	}

	columns := []string{connector}
	for p := n.Parent; p != nil && p.Parent != nil; p = p.Parent {
		if p.IsLast {
			columns = append(columns, columnClosed)
		} else {
			columns = append(columns, columnOpen)
		}
	}

	var b strings.Builder
	for i := len(columns) - 1; i >= 0; i-- {
		b.WriteString(columns[i])
	}

	return b.String()
}

// Tree is the result of scanning a root directory: the root node plus every
// node in depth-first construction order (root first, then each child
// followed immediately by its subtree).
type Tree struct {
	Root     *Node
	Nodes    []*Node
	MaxDepth int
}

// TotalSize returns the aggregated byte size of the whole tree.
func (t *Tree) TotalSize() int64 {
	return t.Root.TotalSize
}

// FileCount returns the number of files in the whole tree.
func (t *Tree) FileCount() int {
	return t.Root.FileCount
}

// Item is one entry of the flat selection list handed to an archiver.
type Item struct {
	AbsPath string
	RelPath string
	IsDir   bool
	Size    int64
	Backup  bool
}

// Items flattens the tree into the selection list consumed by an archiver,
// preserving construction order so parents precede their contents.
func (t *Tree) Items() []Item {
	items := make([]Item, 0, len(t.Nodes))

	for _, n := range t.Nodes {
		items = append(items, Item{
			AbsPath: n.Path,
			RelPath: n.Rel,
			IsDir:   n.IsDir,
			Size:    n.Size,
			Backup:  n.Backup,
		})
	}

	return items
}

// HumanSize renders a byte count with decimal units (K, M, G, T, P). The
// fixed form is always seven characters wide, for column alignment:
//
//	HumanSize(345, true)     -> "345   B"
//	HumanSize(1300000, true) -> "  1.3 M"
//	HumanSize(1300000, false) -> "1.3 M"
func HumanSize(size int64, fixed bool) string {
	val := float64(size)

	var suffix string
	switch {
	case val >= 1e15:
		suffix, val = "P", val/1e15
	case val >= 1e12:
		suffix, val = "T", val/1e12
	case val >= 1e9:
		suffix, val = "G", val/1e9
	case val >= 1e6:
		suffix, val = "M", val/1e6
	case val >= 1e3:
		suffix, val = "K", val/1e3
	default:
		suffix = "B"
	}

	if suffix == "B" {
		if fixed {
			return fmt.Sprintf("%3.0f   B", val)
		}

		return fmt.Sprintf("%3.0f B", val)
	}

	if fixed {
		return fmt.Sprintf("%5.1f %s", val, suffix)
	}

	return fmt.Sprintf("%.1f %s", val, suffix)
}
