// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/appmenu/appmenu/internal/config"
	"github.com/appmenu/appmenu/internal/issue"
	"github.com/appmenu/appmenu/internal/menu"
	"github.com/appmenu/appmenu/internal/rebuild"
	"github.com/appmenu/appmenu/internal/watchset"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

const watchLockName = "watch.lock"

// newWatchCommand creates the `appmenu watch` command.
func newWatchCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the menus whenever the applications folder changes",
		Long: `Watch every folder that contributes to the menu and rebuild the menus
when one of them changes. Bursts of changes are coalesced into at most one
follow-up rebuild. The menu bar is printed after every rebuild.

Only one watch may run per configuration directory. Stop it with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.report(runWatch(cmd.Context(), app, format))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(formatTree), "output format: tree or json")

	return cmd
}

func runWatch(ctx context.Context, app *App, format string) error {
	f, err := parseFormat(format, formatTree, formatJSON)
	if err != nil {
		return err
	}

	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	lock, err := acquireWatchLock(app.loadOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release watch lock", "path", lock.Path(), "err", err)
		}
	}()

	var coord *rebuild.Coordinator
	ws, err := watchset.New(watchset.Config{
		Logger:  s.logger.WithPrefix("watchset"),
		OnEvent: func(e watchset.Event) { coord.HandleWatchEvent(e) },
	})
	if err != nil {
		return err
	}

	onPublish := func(snap *menu.Snapshot) {
		if f == formatTree {
			leaves, _ := menu.Count(snap.MenuBar)
			fmt.Fprintln(app.stdout, SubtitleStyle.Render(fmt.Sprintf("rebuild %d: %d entries, %d folders watched, %s",
				snap.Generation, leaves, len(snap.Watched), snap.Duration.Round(time.Millisecond))))
		}
		if err := renderSnapshot(app.stdout, snap, f, false); err != nil {
			s.logger.Error("render failed", "err", err)
		}
	}

	coord, err = rebuild.New(app.coordinatorConfig(s, ws, onPublish))
	if err != nil {
		_ = ws.Close()
		return err
	}

	s.logger.Info("watching", "root", s.rootPath, "secondary", s.secondary, "lock", lock.Path())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wsErr := make(chan error, 1)
	go func() {
		wsErr <- ws.Run(ctx)
		cancel()
	}()

	runErr := coord.Run(ctx)
	cancel()
	if err := <-wsErr; err != nil {
		return watchFailure(err)
	}

	st := coord.Stats()
	s.logger.Info("stopped", "rebuilds", st.Rebuilds, "events", st.Events, "coalesced", st.Coalesced)
	return runErr
}

// acquireWatchLock takes the single-instance lock next to the config file.
func acquireWatchLock(opts config.LoadOptions) (*flock.Flock, error) {
	cfgPath, err := config.FilePath(opts)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, watchLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire watch lock: %w", err)
	}
	if !ok {
		return nil, issue.NewErrorContext().
			WithOperation("start watching").
			WithResource(lock.Path()).
			WithSuggestion("Stop the other 'appmenu watch' first").
			WithSuggestion("Or pass --config with a different directory").
			WithIssue(issue.AlreadyRunningId).
			Wrap(errors.New("another appmenu watch holds the lock")).
			BuildError()
	}
	return lock, nil
}

func watchFailure(err error) error {
	if !errors.Is(err, watchset.ErrBackendExhausted) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("watch applications").
		WithSuggestion("Raise the watch limit, e.g. sysctl fs.inotify.max_user_watches=524288").
		WithSuggestion("Or lower --max-depth so fewer folders are watched").
		WithIssue(issue.WatchLimitReachedId).
		Wrap(err).
		BuildError()
}
