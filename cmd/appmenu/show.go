// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/appmenu/appmenu/internal/rebuild"

	"github.com/spf13/cobra"
)

// newShowCommand creates the `appmenu show` command.
func newShowCommand(app *App) *cobra.Command {
	var (
		format string
		dock   bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Build the menus once and print them",
		Long: `Build the menu bar and dock menus once and print one of them.

The tree format draws the menu hierarchy, the table format lists every
entry with the submenu it appears in, and the json format prints the whole
snapshot including both trees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.report(runShow(cmd.Context(), app, format, dock))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(formatTree), "output format: tree, table or json")
	cmd.Flags().BoolVar(&dock, "dock", false, "print the dock menu instead of the menu bar")

	return cmd
}

func runShow(ctx context.Context, app *App, format string, dock bool) error {
	f, err := parseFormat(format, formatTree, formatTable, formatJSON)
	if err != nil {
		return err
	}

	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	snap, err := rebuild.Once(app.coordinatorConfig(s, nil, nil))
	if err != nil {
		return err
	}
	return renderSnapshot(app.stdout, snap, f, dock)
}
