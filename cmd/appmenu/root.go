// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for appmenu.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/appmenu/appmenu/internal/apptree"
	"github.com/appmenu/appmenu/internal/config"
	"github.com/appmenu/appmenu/internal/issue"
	"github.com/appmenu/appmenu/internal/rebuild"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags. None of them is persisted.
type rootFlags struct {
	verbose       bool
	configFile    string
	secondaryRoot string
	maxDepth      int
	settleDelay   time.Duration
	locale        string
}

// NewRootCommand builds the appmenu command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "appmenu",
		Short: "Application launcher menus built from an applications folder",
		Long: TitleStyle.Render("appmenu") + SubtitleStyle.Render(" - application launcher menus built from an applications folder") + `

appmenu walks an applications directory and turns it into a menu tree:
application bundles become entries, folders become submenus, empty folders
disappear and folders holding a single entry are replaced by that entry.
The system Utilities folder, when present, is merged into yours.

` + SubtitleStyle.Render("Examples:") + `
  appmenu show                     Print the menu bar tree
  appmenu show --format table      List every entry with its location
  appmenu watch                    Rebuild whenever the folder changes
  appmenu config set root_path ~/Applications`,
		SilenceUsage: true,
	}

	f := &app.flags
	pf := root.PersistentFlags()
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&f.configFile, "config", "", "config file (default is <user config dir>/appmenu/config.cue)")
	pf.StringVar(&f.secondaryRoot, "secondary-root", config.DefaultSecondaryRootPath(), "applications directory whose Utilities folder is merged in (empty disables)")
	pf.IntVar(&f.maxDepth, "max-depth", apptree.DefaultMaxDepth, "deepest folder level that is still expanded")
	pf.DurationVar(&f.settleDelay, "settle-delay", rebuild.DefaultSettleDelay, "wait after a rebuild before checking for further changes")
	pf.StringVar(&f.locale, "locale", "und", "BCP 47 language tag selecting the sort order")

	root.AddCommand(newShowCommand(app))
	root.AddCommand(newWatchCommand(app))
	root.AddCommand(newConfigCommand(app))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI and returns the exit code.
func Main() int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return 1
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
