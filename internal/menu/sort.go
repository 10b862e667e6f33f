// SPDX-License-Identifier: MPL-2.0

package menu

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders sibling nodes by case-insensitive, locale-aware title
// comparison. Titles that compare equal keep their encounter order.
//
// A collate.Collator carries scratch buffers, so access is serialized.
type Sorter struct {
	mu  sync.Mutex
	col *collate.Collator
}

// NewSorter returns a Sorter collating for tag. language.Und selects the root
// collation order.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{col: collate.New(tag, collate.IgnoreCase)}
}

// Compare returns -1, 0 or +1 comparing a and b.
func (s *Sorter) Compare(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.CompareString(a, b)
}

// Sort orders nodes in place by title. The sort is stable.
func (s *Sorter) Sort(nodes []*Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return s.col.CompareString(a.Title, b.Title)
	})
}
