// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/appmenu/appmenu/internal/config"
	"github.com/appmenu/appmenu/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `appmenu config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage appmenu configuration",
		Long: `Manage appmenu configuration.

Configuration is stored in:
  - Linux: ~/.config/appmenu/config.cue
  - macOS: ~/Library/Application Support/appmenu/config.cue
  - Windows: %APPDATA%\appmenu\config.cue

APPMENU_ROOT_PATH and APPMENU_IGNORING_PARENTHESIZED override the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.report(showConfig(cmd.Context(), app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.report(initConfig(app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.FilePath(app.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"root_path", "ignoring_parenthesized"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.report(setConfigValue(cmd.Context(), app, args[0], args[1]))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.Config.LoadWithSource(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.report(err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, source, err := app.Config.LoadWithSource(ctx, app.loadOptions())
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	rootValue := valueStyle.Render(cfg.RootPath.String())
	if cfg.RootPath == "" {
		rootValue = SubtitleStyle.Render("(platform default)")
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("root_path"), rootValue)
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("ignoring_parenthesized"), valueStyle.Render(strconv.FormatBool(cfg.IgnoringParenthesized)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("effective root"), cfg.EffectiveRootPath())
	if app.flags.secondaryRoot != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("secondary root"), app.flags.secondaryRoot)
	}
	return nil
}

func initConfig(app *App) error {
	path, err := config.FilePath(app.loadOptions())
	if err != nil {
		return err
	}

	created, err := config.CreateDefaultConfigAt(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", SubtitleStyle.Render("•"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func setConfigValue(ctx context.Context, app *App, key, value string) error {
	opts := app.loadOptions()
	path, err := config.FilePath(opts)
	if err != nil {
		return err
	}

	// set creates a missing --config file instead of failing to load it.
	cfg := config.DefaultConfig()
	if _, statErr := os.Stat(path); opts.ConfigFilePath == "" || statErr == nil {
		if cfg, _, err = app.Config.LoadWithSource(ctx, opts); err != nil {
			return err
		}
	}

	switch key {
	case "root_path":
		cfg.RootPath = config.RootPath(value)
	case "ignoring_parenthesized":
		b, perr := strconv.ParseBool(value)
		if perr != nil {
			return issue.NewErrorContext().
				WithOperation("set ignoring_parenthesized").
				WithResource(value).
				WithSuggestion("Use true or false").
				Wrap(perr).
				BuildError()
		}
		cfg.IgnoringParenthesized = b
	default:
		return issue.NewErrorContext().
			WithOperation("set configuration value").
			WithResource(key).
			WithSuggestion("Valid keys are root_path and ignoring_parenthesized").
			Wrap(fmt.Errorf("unknown configuration key %q", key)).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return issue.NewErrorContext().
			WithOperation("set " + key).
			WithResource(value).
			WithSuggestion("Use an absolute directory, or an empty string for the platform default").
			Wrap(errs[0]).
			BuildError()
	}

	if err := config.SaveTo(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Set %s = %s in %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(key), value, path)
	return nil
}
