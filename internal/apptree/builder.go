// SPDX-License-Identifier: MPL-2.0

// Package apptree turns an applications directory subtree into a menu tree.
//
// Build walks one root: application bundles and legacy applications become
// leaves, subdirectories recurse up to MaxDepth, empty directories vanish and
// single-entry directories are replaced by their only entry. The top-level
// Utilities category is never replaced, so it can always be merged. Merge builds a
// primary and an optional secondary root and folds the secondary root's
// Utilities category into the primary one.
package apptree

import (
	"io"

	"github.com/appmenu/appmenu/internal/classify"
	"github.com/appmenu/appmenu/internal/menu"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

const (
	// DefaultMaxDepth is the deepest directory level whose subdirectories
	// are still expanded. The root is depth 0.
	DefaultMaxDepth = 6

	// DefaultCategoryTitle is the top-level category shared between the
	// primary and secondary roots.
	DefaultCategoryTitle = "Utilities"
)

type (
	// Options configures a Builder. Zero fields take the documented defaults.
	Options struct {
		// FS lists directories. Defaults to OSFileSystem().
		FS FileSystem
		// Localizer supplies display names. Defaults to SuffixLocalizer.
		Localizer Localizer
		// Resolver maps alias entries. Defaults to PassThroughResolver.
		Resolver Resolver
		// Registrar receives every directory visited by a listening walk.
		// A nil Registrar disables watch registration.
		Registrar Registrar
		// Sorter orders siblings. Defaults to NewSorter(language.Und).
		Sorter *menu.Sorter
		// Yield is consulted once per entry. Defaults to no yielding.
		Yield Yielder
		// Logger receives debug output. Defaults to a discarding logger.
		Logger *log.Logger
		// MaxDepth bounds recursion. Non-positive values use DefaultMaxDepth.
		MaxDepth int
		// CategoryTitle names the merged category. Defaults to
		// DefaultCategoryTitle.
		CategoryTitle string
		// IgnoringParenthesized drops entries named "(...)".
		IgnoringParenthesized bool
	}

	// Stats describes the work done since the Builder was created.
	Stats struct {
		// Directories counts listed directories.
		Directories int
		// ListFailures counts directories that could not be listed.
		ListFailures int
		// WatchFailures counts directories whose watch registration failed.
		WatchFailures int
		// GUIDDropped counts bundles dropped for a GUID-shaped name.
		GUIDDropped int
	}

	// Builder walks directory trees. A Builder is not safe for concurrent
	// use; create one per rebuild pass.
	Builder struct {
		fs            FileSystem
		localizer     Localizer
		resolver      Resolver
		registrar     Registrar
		sorter        *menu.Sorter
		yield         Yielder
		logger        *log.Logger
		classifier    *classify.Classifier
		maxDepth      int
		categoryTitle string
		stats         Stats
	}
)

// New returns a Builder configured by opts.
func New(opts Options) *Builder {
	b := &Builder{
		fs:            opts.FS,
		localizer:     opts.Localizer,
		resolver:      opts.Resolver,
		registrar:     opts.Registrar,
		sorter:        opts.Sorter,
		yield:         opts.Yield,
		logger:        opts.Logger,
		maxDepth:      opts.MaxDepth,
		categoryTitle: opts.CategoryTitle,
	}
	if b.fs == nil {
		b.fs = OSFileSystem()
	}
	if b.localizer == nil {
		b.localizer = SuffixLocalizer{}
	}
	if b.resolver == nil {
		b.resolver = PassThroughResolver{}
	}
	if b.sorter == nil {
		b.sorter = menu.NewSorter(language.Und)
	}
	if b.yield == nil {
		b.yield = noYield{}
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxDepth
	}
	if b.categoryTitle == "" {
		b.categoryTitle = DefaultCategoryTitle
	}
	b.classifier = classify.New(b.fs, opts.IgnoringParenthesized)
	return b
}

// Stats returns the counters accumulated so far.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Build returns the sorted menu entries for the directory at path, which sits
// at the given depth below the root. When listen is set, path is registered
// with the Registrar before it is listed.
func (b *Builder) Build(path string, depth int, listen bool) []*menu.Node {
	if listen && b.registrar != nil {
		if err := b.registrar.Add(path); err != nil {
			b.stats.WatchFailures++
			b.logger.Debug("directory not watched", "path", path, "err", err)
		}
	}

	b.stats.Directories++
	entries, err := b.fs.ListDirectory(path)
	if err != nil {
		b.stats.ListFailures++
		b.logger.Debug("treating unreadable directory as empty", "path", path, "err", err)
		return nil
	}

	nodes := make([]*menu.Node, 0, len(entries))
	for _, e := range entries {
		b.yield.Yield()
		e = b.resolver.Resolve(e)

		var n *menu.Node
		switch b.classifier.Classify(e) {
		case classify.Ignore:
		case classify.AppBundle:
			n = b.bundleNode(e)
		case classify.LegacyApp:
			n = menu.NewLeaf(e.Name, e.FullPath)
		case classify.SubDirectory:
			n = b.directoryNode(e, depth, listen)
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}

	b.sorter.Sort(nodes)
	return nodes
}

// bundleNode returns the leaf for an application bundle, or nil when its
// display name is GUID-shaped.
func (b *Builder) bundleNode(e classify.Entry) *menu.Node {
	title, ok := b.localizer.LocalizedDisplayName(e.FullPath)
	if !ok {
		title = classify.TrimBundleSuffix(e.Name)
	}
	if classify.IsGUIDShaped(title) {
		b.stats.GUIDDropped++
		b.logger.Debug("dropping installer artifact", "path", e.FullPath)
		return nil
	}
	return menu.NewLeaf(title, e.FullPath)
}

// directoryNode returns nil for a directory without entries, the single
// entry itself for a one-entry directory, and a submenu otherwise. Directories
// at MaxDepth are not expanded and therefore contribute nothing.
func (b *Builder) directoryNode(e classify.Entry, depth int, listen bool) *menu.Node {
	if depth >= b.maxDepth {
		return nil
	}

	children := b.Build(e.FullPath, depth+1, listen)
	if len(children) == 0 {
		return nil
	}

	title, ok := b.localizer.LocalizedDisplayName(e.FullPath)
	if !ok {
		title = e.Name
	}

	// The top-level category stays a submenu so a secondary root can merge
	// into it.
	if len(children) == 1 && !(depth == 0 && title == b.categoryTitle) {
		return children[0]
	}
	return menu.NewSubMenu(title, e.FullPath, children)
}
