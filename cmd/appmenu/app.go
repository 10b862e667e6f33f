// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/appmenu/appmenu/internal/apptree"
	"github.com/appmenu/appmenu/internal/config"
	"github.com/appmenu/appmenu/internal/issue"
	"github.com/appmenu/appmenu/internal/menu"
	"github.com/appmenu/appmenu/internal/rebuild"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		LoadWithSource(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// session is the resolved input of one command invocation.
	session struct {
		cfg       *config.Config
		source    string
		rootPath  string
		secondary string
		locale    language.Tag
		logger    *log.Logger
	}
)

// NewApp creates an App with the given dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configFile}
}

func (a *App) newLogger() *log.Logger {
	level := log.WarnLevel
	if a.flags.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: "appmenu",
		Level:  level,
	})
}

// session loads the configuration and resolves the directories to build from.
func (a *App) session(ctx context.Context) (*session, error) {
	cfg, source, err := a.Config.LoadWithSource(ctx, a.loadOptions())
	if err != nil {
		return nil, err
	}

	locale, err := language.Parse(a.flags.locale)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse locale").
			WithResource(a.flags.locale).
			WithSuggestion("Use a BCP 47 tag such as 'en', 'de-CH' or 'und'").
			Wrap(err).
			BuildError()
	}

	rootPath := cfg.EffectiveRootPath()
	if err := checkRootDir(rootPath); err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		source:    source,
		rootPath:  rootPath,
		secondary: strings.TrimSpace(a.flags.secondaryRoot),
		locale:    locale,
		logger:    a.newLogger(),
	}, nil
}

// checkRootDir reports a missing or unreadable applications directory.
func checkRootDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case errors.Is(err, os.ErrPermission):
		return issue.NewErrorContext().
			WithOperation("read applications directory").
			WithResource(path).
			WithSuggestion("Grant read access to the directory or choose another root").
			WithIssue(issue.PermissionDeniedId).
			Wrap(err).
			BuildError()
	case err == nil:
		err = fmt.Errorf("%s is not a directory", path)
	}
	return issue.NewErrorContext().
		WithOperation("read applications directory").
		WithResource(path).
		WithSuggestion("Set another root with 'appmenu config set root_path <dir>'").
		WithSuggestion("Or override it for one run with APPMENU_ROOT_PATH=<dir>").
		WithIssue(issue.RootNotFoundId).
		Wrap(err).
		BuildError()
}

// coordinatorConfig returns the rebuild configuration for s.
func (a *App) coordinatorConfig(s *session, watches rebuild.Watches, onPublish func(*menu.Snapshot)) rebuild.Config {
	return rebuild.Config{
		RootPath:              s.rootPath,
		SecondaryRootPath:     s.secondary,
		IgnoringParenthesized: s.cfg.IgnoringParenthesized,
		Watches:               watches,
		FS:                    apptree.OSFileSystem(),
		Localizer:             apptree.SuffixLocalizer{},
		Locale:                s.locale,
		MaxDepth:              a.flags.maxDepth,
		SettleDelay:           a.flags.settleDelay,
		Logger:                s.logger,
		OnPublish:             onPublish,
	}
}

// report writes the details fang does not print for err: the suggestions,
// and in verbose mode the error chain and the troubleshooting guide. It
// returns err unchanged.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}

	if a.flags.verbose {
		fmt.Fprintln(a.stderr, formatErrorForDisplay(err, true))
		if guide := issue.GuideFor(err); guide != nil {
			if rendered, rerr := guide.Render("auto"); rerr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
		return err
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.HasSuggestions() {
		for _, s := range ae.Suggestions {
			fmt.Fprintln(a.stderr, WarningStyle.Render("  • ")+s)
		}
	}
	return err
}
