package pathtree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Order selects how the children of a directory are sequenced. The order is
// significant beyond cosmetics: it fixes the display order and the is-last
// flags used for tree rendering.
type Order int

const (
	// OrderDirsFirst lists directories before files, each group sorted by
	// case-insensitive name.
	OrderDirsFirst Order = iota

	// OrderFilesFirst lists files before directories, each group sorted by
	// case-insensitive name.
	OrderFilesFirst
)

// Options configures a tree build. The zero value scans everything with
// directories listed first and no size ceiling.
type Options struct {
	// Include and Exclude are sets of absolute paths carrying explicit
	// decisions. The rule closest to an entry wins: an entry (or its nearest
	// ruled ancestor) in Include is selected, in Exclude deselected, and an
	// entry with no ruled ancestor at all is selected.
	Include []string
	Exclude []string

	// ExcludeGlobs are doublestar patterns matched against the root-relative
	// slash path of every entry. A match behaves like membership in Exclude
	// at that entry's level, so a deeper Include still overrides it. A
	// pattern with a trailing separator matches directories only.
	ExcludeGlobs []string

	// FileMax excludes files of at least this many bytes from the backup
	// when positive. Directories are never size-excluded.
	FileMax int64

	Order Order
}

// Build scans the directory at root and returns its tree, with decisions
// seeded from opts and sizes, file counts and decisions aggregated upward.
//
// The scan is a single sequential depth-first pass; children of a directory
// are discovered with one listing and sorted before recursion. Any directory
// that cannot be listed aborts the whole build: a partially scanned tree
// would silently produce an incomplete backup, which is worse than failing.
func Build(ctx context.Context, fsys afero.Fs, root string, opts Options) (*Tree, error) {
	for _, pattern := range opts.ExcludeGlobs {
		if !doublestar.ValidatePattern(normalizePattern(pattern)) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
	}

	root = filepath.Clean(root)

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to scan %s: not a directory", root)
	}

	b := &builder{
		ctx:   ctx,
		fs:    fsys,
		opts:  opts,
		rules: newRuleSet(opts),
		tree:  &Tree{},
	}

	b.tree.Root = b.newNode(nil, root, info, false)
	if err := b.descend(b.tree.Root); err != nil {
		return nil, err
	}

	return b.tree, nil
}

type builder struct {
	ctx   context.Context
	fs    afero.Fs
	opts  Options
	rules *ruleSet
	tree  *Tree
}

func (b *builder) descend(dir *Node) error {
	if err := b.ctx.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir.Path, err)
	}

	infos, err := afero.ReadDir(b.fs, dir.Path)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir.Path, err)
	}

	b.sortEntries(infos)

	for i, fi := range infos {
		child := b.newNode(dir, filepath.Join(dir.Path, fi.Name()), fi, i == len(infos)-1)

		if child.IsDir {
			if err := b.descend(child); err != nil {
				return err
			}
		}
	}

	return nil
}

// newNode constructs a node and immediately folds it into every ancestor:
// sizes and file counts accumulate, and a selected entry switches each
// ancestor on. The walk is O(depth) per node; decisions never travel back
// down.
func (b *builder) newNode(parent *Node, path string, info os.FileInfo, isLast bool) *Node {
	n := &Node{
		Path:   path,
		Rel:    ".",
		Name:   info.Name(),
		IsDir:  info.IsDir(),
		IsLast: isLast,
		Parent: parent,
	}

	if parent != nil {
		n.Depth = parent.Depth + 1
		n.Rel = filepath.Join(parent.Rel, info.Name())
		parent.Children = append(parent.Children, n)
	}

	if !n.IsDir {
		n.Size = info.Size()
		n.TotalSize = n.Size
		n.FileCount = 1
		n.Backup = b.rules.decide(n) && b.sizeOK(n)
	}

	n.Explicit = b.rules.explicit(path)

	for p := parent; p != nil; p = p.Parent {
		p.TotalSize += n.Size
		if !n.IsDir {
			p.FileCount++
		}
		p.Backup = p.Backup || n.Backup
	}

	b.tree.Nodes = append(b.tree.Nodes, n)
	if n.Depth > b.tree.MaxDepth {
		b.tree.MaxDepth = n.Depth
	}

	return n
}

func (b *builder) sizeOK(n *Node) bool {
	return b.opts.FileMax <= 0 || n.Size < b.opts.FileMax
}

func (b *builder) sortEntries(infos []os.FileInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		x, y := infos[i], infos[j]

		if x.IsDir() != y.IsDir() {
			if b.opts.Order == OrderFilesFirst {
				return !x.IsDir()
			}

			return x.IsDir()
		}

		xn, yn := strings.ToLower(x.Name()), strings.ToLower(y.Name())
		if xn != yn {
			return xn < yn
		}

		return x.Name() < y.Name()
	})
}

// ruleSet resolves the name-based part of an entry's decision.
type ruleSet struct {
	include map[string]struct{}
	exclude map[string]struct{}
	globs   []string
}

func newRuleSet(opts Options) *ruleSet {
	r := &ruleSet{
		include: make(map[string]struct{}, len(opts.Include)),
		exclude: make(map[string]struct{}, len(opts.Exclude)),
		globs:   opts.ExcludeGlobs,
	}

	for _, p := range opts.Include {
		r.include[filepath.Clean(p)] = struct{}{}
	}
	for _, p := range opts.Exclude {
		r.exclude[filepath.Clean(p)] = struct{}{}
	}

	return r
}

// decide resolves closest-rule-wins for an entry: walking from the entry
// toward the root, the first level carrying a rule determines the outcome,
// and an entry with no ruled ancestor defaults to selected.
func (r *ruleSet) decide(n *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if _, ok := r.include[cur.Path]; ok {
			return true
		}
		if _, ok := r.exclude[cur.Path]; ok {
			return false
		}
		if cur.Parent != nil && r.globExcluded(cur.Rel, cur.IsDir) {
			return false
		}
	}

	return true
}

// explicit reports whether a path is literally present in either rule set.
// Explicit entries are always surfaced by the visibility filter so the
// operator can review and edit them.
func (r *ruleSet) explicit(path string) bool {
	if _, ok := r.include[path]; ok {
		return true
	}
	_, ok := r.exclude[path]

	return ok
}

func (r *ruleSet) globExcluded(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)

	for _, raw := range r.globs {
		pattern := filepath.ToSlash(raw)

		dirOnly := strings.HasSuffix(pattern, "/")
		matched, err := doublestar.Match(normalizePattern(raw), rel)
		if err != nil {
			continue // patterns are validated up front
		}
		if matched {
			if dirOnly && !isDir {
				continue
			}

			return true
		}
	}

	return false
}

func normalizePattern(raw string) string {
	pattern := filepath.ToSlash(raw)

	return strings.TrimPrefix(strings.TrimSuffix(pattern, "/"), "/")
}
