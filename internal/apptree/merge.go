// SPDX-License-Identifier: MPL-2.0

package apptree

import (
	"slices"

	"github.com/appmenu/appmenu/internal/menu"
)

// Merge builds the primary root and, when secondary is non-empty, folds the
// secondary root's category submenu into the primary one. Children are
// de-duplicated by identity, not by title.
//
// Only the category is taken from the secondary root. When the primary tree
// has no such category the secondary one is dropped rather than injected.
func (b *Builder) Merge(primary, secondary string, listen bool) []*menu.Node {
	var extra *menu.Node
	if secondary != "" {
		extra = findCategory(b.Build(secondary, 0, listen), b.categoryTitle)
	}

	tree := b.Build(primary, 0, listen)

	if extra != nil {
		if target := findCategory(tree, b.categoryTitle); target != nil {
			target.Children = b.mergeChildren(target.Children, extra.Children)
		} else {
			b.logger.Debug("secondary category has no primary counterpart",
				"category", b.categoryTitle, "entries", len(extra.Children))
		}
	}

	b.sorter.Sort(tree)
	return tree
}

// mergeChildren appends every entry of extra whose identity is not already
// present in base, then sorts the result.
func (b *Builder) mergeChildren(base, extra []*menu.Node) []*menu.Node {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := slices.Clone(base)
	for _, n := range base {
		seen[n.Identity()] = struct{}{}
	}
	for _, n := range extra {
		id := n.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, n)
	}
	b.sorter.Sort(merged)
	return merged
}

// findCategory returns the top-level submenu titled title. A leaf that happens
// to carry the title is not a category.
func findCategory(nodes []*menu.Node, title string) *menu.Node {
	for _, n := range nodes {
		if n.Kind == menu.KindSubMenu && n.Title == title {
			return n
		}
	}
	return nil
}
