// SPDX-License-Identifier: MPL-2.0

package menu

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	// KindLeaf is a launchable application entry.
	KindLeaf Kind = iota
	// KindSubMenu is a directory grouping two or more entries.
	KindSubMenu
)

// ErrInvalidKind is returned when a Kind value is not one of the defined kinds.
var ErrInvalidKind = errors.New("invalid menu node kind")

type (
	// Kind distinguishes leaf entries from submenus.
	Kind int

	// InvalidKindError is returned when a Kind value is not recognized.
	// It wraps ErrInvalidKind for errors.Is() compatibility.
	InvalidKindError struct {
		Value Kind
	}

	// Node is a single menu entry.
	Node struct {
		// Title is the display title used for rendering and sorting.
		Title string `json:"title"`
		// Kind is KindLeaf or KindSubMenu.
		Kind Kind `json:"kind"`
		// TargetPath is the application path for leaves and the directory path
		// for submenus (used by an "open in file manager" action).
		TargetPath string `json:"target_path"`
		// IconKey is handed to the renderer for icon lookup.
		IconKey string `json:"icon_key,omitempty"`
		// Children holds the ordered submenu entries. Always empty for leaves.
		Children []*Node `json:"children,omitempty"`
	}
)

// NewLeaf returns a leaf node launching target.
func NewLeaf(title, target string) *Node {
	return &Node{
		Title:      title,
		Kind:       KindLeaf,
		TargetPath: target,
		IconKey:    target,
	}
}

// NewSubMenu returns a submenu node for the directory at target.
func NewSubMenu(title, target string, children []*Node) *Node {
	return &Node{
		Title:      title,
		Kind:       KindSubMenu,
		TargetPath: target,
		IconKey:    target,
		Children:   children,
	}
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSubMenu:
		return "submenu"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "leaf":
		*k = KindLeaf
	case "submenu":
		*k = KindSubMenu
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, text)
	}
	return nil
}

// Validate returns nil if the Kind is one of the defined kinds.
func (k Kind) Validate() error {
	switch k {
	case KindLeaf, KindSubMenu:
		return nil
	default:
		return &InvalidKindError{Value: k}
	}
}

// Error implements the error interface for InvalidKindError.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid menu node kind %d (valid: 0=leaf, 1=submenu)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error {
	return ErrInvalidKind
}

// IsLeaf reports whether n is a leaf entry.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindLeaf
}

// Identity returns the key two nodes share when they stand for the same
// filesystem object. Titles are not part of the identity: two applications
// with the same name in different directories are distinct entries.
func (n *Node) Identity() string {
	return n.Kind.String() + ":" + filepath.Clean(n.TargetPath)
}

// Find returns the first node in nodes whose title equals title, or nil.
func Find(nodes []*Node, title string) *Node {
	for _, n := range nodes {
		if n.Title == title {
			return n
		}
	}
	return nil
}

// Walk calls fn for every node in depth-first order. depth is 0 for the
// nodes passed in. Returning false from fn skips the node's children.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int) bool) {
	for _, n := range nodes {
		if fn(n, depth) && len(n.Children) > 0 {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Count returns the number of leaves and submenus in the tree.
func Count(nodes []*Node) (leaves, submenus int) {
	Walk(nodes, func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves++
		} else {
			submenus++
		}
		return true
	})
	return leaves, submenus
}

// Titles returns the titles of nodes in order. Handy for logging and tests.
func Titles(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Title
	}
	return out
}
