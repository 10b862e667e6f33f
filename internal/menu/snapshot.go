// SPDX-License-Identifier: MPL-2.0

package menu

import "time"

// Snapshot is one completed rebuild. Both trees are built from the same
// RebuildState and published together; neither is mutated afterwards.
type Snapshot struct {
	// Generation increases by one with every published rebuild.
	Generation uint64 `json:"generation"`
	// BuiltAt is when the rebuild finished.
	BuiltAt time.Time `json:"built_at"`
	// Duration is how long both passes took.
	Duration time.Duration `json:"duration"`
	// MenuBar is the tree whose build pass registered directory watches.
	MenuBar []*Node `json:"menu_bar"`
	// Dock is an independent copy built without registering watches.
	Dock []*Node `json:"dock"`
	// Watched lists the directories watched after this rebuild, sorted.
	Watched []string `json:"watched,omitempty"`
}

// Empty reports whether the snapshot contains no entries.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.MenuBar) == 0
}
