// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/appmenu/appmenu/internal/menu"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	formatTree  outputFormat = "tree"
	formatJSON  outputFormat = "json"
	formatTable outputFormat = "table"

	locationSeparator = " › "
)

type (
	outputFormat string

	// entryRow is one leaf in the flat listing.
	entryRow struct {
		Title    string
		Location string
		Target   string
	}
)

// parseFormat accepts value when it is one of allowed.
func parseFormat(value string, allowed ...outputFormat) (outputFormat, error) {
	names := make([]string, len(allowed))
	for i, f := range allowed {
		if string(f) == strings.ToLower(value) {
			return f, nil
		}
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown format %q (want one of: %s)", value, strings.Join(names, ", "))
}

// renderSnapshot writes one tree of s in format. JSON output always carries
// both trees.
func renderSnapshot(w io.Writer, s *menu.Snapshot, format outputFormat, dock bool) error {
	nodes, title := s.MenuBar, "Menu bar"
	if dock {
		nodes, title = s.Dock, "Dock"
	}

	switch format {
	case formatJSON:
		return renderJSON(w, s)
	case formatTable:
		_, err := fmt.Fprintln(w, renderTable(nodes))
		return err
	default:
		_, err := fmt.Fprintln(w, renderTree(title, nodes))
		return err
	}
}

func renderTree(title string, nodes []*menu.Node) string {
	t := tree.Root(TitleStyle.Render(title)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumeratorStyle)
	if len(nodes) == 0 {
		return t.Child(SubtitleStyle.Render("(empty)")).String()
	}
	return t.Child(treeChildren(nodes)...).String()
}

func treeChildren(nodes []*menu.Node) []any {
	children := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if n.IsLeaf() {
			children = append(children, n.Title)
			continue
		}
		sub := tree.Root(submenuStyle.Render(n.Title)).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(enumeratorStyle).
			Child(treeChildren(n.Children)...)
		children = append(children, sub)
	}
	return children
}

func renderJSON(w io.Writer, s *menu.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// flatten lists every leaf under nodes in menu order.
func flatten(nodes []*menu.Node) []entryRow {
	var rows []entryRow
	var path []string
	menu.Walk(nodes, func(n *menu.Node, depth int) bool {
		path = path[:depth]
		if !n.IsLeaf() {
			path = append(path, n.Title)
			return true
		}
		rows = append(rows, entryRow{
			Title:    n.Title,
			Location: strings.Join(path, locationSeparator),
			Target:   n.TargetPath,
		})
		return true
	})
	return rows
}

func renderTable(nodes []*menu.Node) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Title", "Menu", "Target"})

	for _, r := range flatten(nodes) {
		location := r.Location
		if location == "" {
			location = "-"
		}
		tw.AppendRow(table.Row{r.Title, location, r.Target})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
