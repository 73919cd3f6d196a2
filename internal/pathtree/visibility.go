package pathtree

import (
	"math"
	"sort"
	"unicode/utf8"
)

// HighlightQuantile is the share of leaf sizes an entry must exceed to be
// marked as large: entries above the 0.9 quantile of the leaf-size
// distribution sit in the top decile.
const HighlightQuantile = 0.9

// ViewOptions configures the visibility filter. The filter is a display
// concern only and never changes decisions or aggregates.
type ViewOptions struct {
	// ShowThreshold hides entries whose aggregate size does not exceed this
	// many bytes. The root and explicitly ruled entries are always shown.
	ShowThreshold int64

	// MaxDepth hides entries deeper than this many levels below the root
	// when non-negative. Hidden levels still contribute to aggregates.
	MaxDepth int

	// MaxItems caps the display at roughly this many entries when positive:
	// once the tree holds more files than the cap, only entries larger than
	// the cap-th largest file remain visible.
	MaxItems int

	// Annotate is the aggregate size above which display names carry a size
	// annotation.
	Annotate int64
}

// Entry is one visible line of a tree view.
type Entry struct {
	Node *Node

	// Pretty is the unstyled display line: tree prefix plus display name.
	Pretty string

	// Pct is the entry's share of the tree total, in [0, 1].
	Pct float64

	// Highlight marks entries in the top decile of the size distribution.
	Highlight bool
}

// View is the visible slice of a tree, in construction order.
type View struct {
	Entries   []Entry
	TotalSize int64

	// NameWidth is the widest Pretty in runes, for column alignment.
	NameWidth int
}

// NewView applies the visibility rules to a tree: explicitly ruled entries
// are always visible; otherwise entries beyond the depth limit or below the
// item-cap cutoff are hidden; what remains is visible when it is the root or
// its aggregate size exceeds the show threshold.
//
// A directory's aggregate is at least as large as any entry beneath it, so
// the size-based rules can never hide an ancestor of a visible entry and the
// view always forms a connected tree.
func NewView(t *Tree, opts ViewOptions) *View {
	leaves := make([]int64, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if !n.IsDir {
			leaves = append(leaves, n.Size)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i] < leaves[j] })

	highlightAbove := math.Inf(1)
	if len(leaves) > 0 {
		highlightAbove = quantile(leaves, HighlightQuantile)
	}

	var cutoff int64
	capped := opts.MaxItems > 0 && len(leaves) > opts.MaxItems
	if capped {
		cutoff = leaves[len(leaves)-1-opts.MaxItems]
	}

	v := &View{TotalSize: t.TotalSize()}

	for _, n := range t.Nodes {
		if !n.Explicit {
			if opts.MaxDepth > -1 && n.Depth > opts.MaxDepth {
				continue
			}
			if capped && n.TotalSize <= cutoff {
				continue
			}
			if n != t.Root && n.TotalSize <= opts.ShowThreshold {
				continue
			}
		}

		e := Entry{
			Node:      n,
			Pretty:    n.TreePrefix() + n.DisplayName(opts.Annotate, false),
			Highlight: float64(n.TotalSize) > highlightAbove,
		}
		if v.TotalSize > 0 {
			e.Pct = float64(n.TotalSize) / float64(v.TotalSize)
		}

		if w := utf8.RuneCountInString(e.Pretty); w > v.NameWidth {
			v.NameWidth = w
		}

		v.Entries = append(v.Entries, e)
	}

	return v
}

// quantile returns the q-th quantile of the ascending-sorted xs, linearly
// interpolated between the two closest ranks. xs must be non-empty.
func quantile(xs []int64, q float64) float64 {
	if len(xs) == 1 {
		return float64(xs[0])
	}

	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)

	return float64(xs[lo])*(1-frac) + float64(xs[hi])*frac
}
