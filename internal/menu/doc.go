// SPDX-License-Identifier: MPL-2.0

// Package menu defines the hierarchical application menu model.
//
// A menu is an ordered slice of *Node values. Leaf nodes point at a launchable
// application; SubMenu nodes group two or more children under a directory
// title. Trees are immutable once published: a rebuild produces a fresh tree
// and swaps it in wholesale through a Snapshot.
package menu
