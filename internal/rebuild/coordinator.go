// SPDX-License-Identifier: MPL-2.0

// Package rebuild serializes menu rebuilds and coalesces the change
// notifications that arrive while one runs.
//
// A Coordinator is Idle until something changes. A change starts a pass that
// clears every watch, merges the roots once while registering watches (the
// menu bar tree) and once without (the dock tree), and publishes both trees in
// one swap. After a pass the coordinator waits SettleDelay and then either
// returns to Idle or, if any change arrived in the meantime, runs exactly one
// more pass. Passes are never interrupted.
package rebuild

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appmenu/appmenu/internal/apptree"
	"github.com/appmenu/appmenu/internal/menu"
	"github.com/appmenu/appmenu/internal/watchset"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// DefaultSettleDelay is how long the coordinator waits after a pass before it
// checks for pending changes.
const DefaultSettleDelay = 250 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("rebuild: coordinator already running")

type (
	// Clock abstracts the settle timer.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// Watches is the watch registry a listening pass repopulates.
	// *watchset.WatchSet implements it.
	Watches interface {
		apptree.Registrar
		Clear()
		Paths() []string
	}

	// Config configures a Coordinator.
	Config struct {
		// RootPath is the primary applications directory. Required.
		RootPath string
		// SecondaryRootPath is merged into the primary category when set.
		SecondaryRootPath string
		// IgnoringParenthesized drops entries named "(...)".
		IgnoringParenthesized bool

		// Watches is cleared and repopulated by every pass. Nil disables
		// watch registration.
		Watches Watches
		// FS lists directories. Defaults to the operating system.
		FS apptree.FileSystem
		// Localizer supplies display names.
		Localizer apptree.Localizer
		// Locale selects the collation used to sort titles.
		Locale language.Tag
		// MaxDepth bounds recursion. Non-positive uses apptree.DefaultMaxDepth.
		MaxDepth int
		// SettleDelay is the wait between a pass and the pending check.
		// Non-positive uses DefaultSettleDelay.
		SettleDelay time.Duration
		// YieldInterval enables a rate-limited scheduler yield during walks.
		// Zero disables it.
		YieldInterval time.Duration
		// Clock drives the settle delay. Defaults to wall-clock time.
		Clock Clock
		// Logger receives lifecycle output. Nil discards it.
		Logger *log.Logger
		// OnPublish is invoked on the Run goroutine after every publish.
		OnPublish func(*menu.Snapshot)
	}

	// Stats counts coordinator activity.
	Stats struct {
		// Rebuilds is the number of completed passes.
		Rebuilds uint64
		// Events is the number of change notifications received.
		Events uint64
		// Coalesced is the number of notifications absorbed by a pass that
		// was already running or already had a follow-up scheduled.
		Coalesced uint64
	}

	// Coordinator owns the RebuildState and runs passes one at a time.
	Coordinator struct {
		cfg    Config
		clock  Clock
		logger *log.Logger
		sorter *menu.Sorter

		mu    sync.Mutex
		state State
		rs    RebuildState
		stats Stats

		// trigger holds at most one token, sent on the Idle to Rebuilding
		// transition only.
		trigger  chan struct{}
		snapshot atomic.Pointer[menu.Snapshot]
		started  atomic.Bool
	}

	realClock struct{}
)

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// New returns an idle Coordinator. Nothing is built until Run is called.
func New(cfg Config) (*Coordinator, error) {
	if cfg.RootPath == "" {
		return nil, errors.New("rebuild: root path is required")
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}

	c := &Coordinator{
		cfg:     cfg,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		sorter:  menu.NewSorter(cfg.Locale),
		trigger: make(chan struct{}, 1),
		rs: RebuildState{
			IgnoringParenthesized: cfg.IgnoringParenthesized,
			RootPath:              cfg.RootPath,
			SecondaryRootPath:     cfg.SecondaryRootPath,
		},
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	c.snapshot.Store(&menu.Snapshot{})
	return c, nil
}

// Once builds both menus a single time without registering any watch and
// returns the snapshot. cfg.Watches and cfg.OnPublish are ignored.
func Once(cfg Config) (*menu.Snapshot, error) {
	cfg.Watches = nil
	cfg.OnPublish = nil
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	c.pass(c.RebuildState())
	return c.Snapshot(), nil
}

// Run builds the menus once and then rebuilds them whenever Notify is called,
// until ctx is cancelled. A pass that is running when ctx is cancelled
// completes before Run returns. Run may be called only once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.Notify()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.trigger:
			c.loop(ctx)
		}
	}
}

// Notify records a change. From Idle it starts a pass; during a pass it sets
// the pending flag, however many times it is called.
func (c *Coordinator) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Events++
	switch c.state {
	case StateIdle:
		c.state = StateRebuilding
		c.rs.InProgress = true
		select {
		case c.trigger <- struct{}{}:
		default:
		}
	case StateRebuilding:
		c.state = StateRebuildingWithPending
		c.rs.Pending = true
		c.stats.Coalesced++
	case StateRebuildingWithPending:
		c.stats.Coalesced++
	}
}

// HandleWatchEvent is a watchset callback that turns every event into a
// change notification.
func (c *Coordinator) HandleWatchEvent(e watchset.Event) {
	c.logger.Debug("change detected", "path", e.Path, "kind", e.Kind, "name", e.Name)
	c.Notify()
}

// SetRootPath replaces the primary root and schedules a rebuild.
func (c *Coordinator) SetRootPath(path string) {
	c.update(func(rs *RebuildState) { rs.RootPath = path })
}

// SetSecondaryRootPath replaces the secondary root and schedules a rebuild.
// An empty path disables merging.
func (c *Coordinator) SetSecondaryRootPath(path string) {
	c.update(func(rs *RebuildState) { rs.SecondaryRootPath = path })
}

// SetIgnoringParenthesized toggles the parenthesized-name filter and
// schedules a rebuild.
func (c *Coordinator) SetIgnoringParenthesized(ignoring bool) {
	c.update(func(rs *RebuildState) { rs.IgnoringParenthesized = ignoring })
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RebuildState returns a copy of the state passes are built from.
func (c *Coordinator) RebuildState() RebuildState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rs
}

// Stats returns a copy of the activity counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Snapshot returns the most recently published menus. Before the first pass
// completes it returns an empty snapshot with Generation 0.
func (c *Coordinator) Snapshot() *menu.Snapshot {
	return c.snapshot.Load()
}

func (c *Coordinator) update(fn func(*RebuildState)) {
	c.mu.Lock()
	fn(&c.rs)
	c.mu.Unlock()
	c.Notify()
}

// loop runs passes until a settle check finds nothing pending.
func (c *Coordinator) loop(ctx context.Context) {
	for {
		c.mu.Lock()
		rs := c.rs
		c.mu.Unlock()

		c.pass(rs)

		select {
		case <-c.clock.After(c.cfg.SettleDelay):
		case <-ctx.Done():
			c.finish()
			return
		}

		c.mu.Lock()
		if c.rs.Pending {
			c.rs.Pending = false
			c.state = StateRebuilding
			c.mu.Unlock()
			continue
		}
		c.state = StateIdle
		c.rs.InProgress = false
		c.mu.Unlock()
		return
	}
}

// finish returns to Idle on shutdown, dropping any pending follow-up.
func (c *Coordinator) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.rs.InProgress = false
	c.rs.Pending = false
}

// pass builds both trees from rs and publishes them.
func (c *Coordinator) pass(rs RebuildState) {
	start := time.Now()
	listen := c.cfg.Watches != nil
	var registrar apptree.Registrar
	if listen {
		c.cfg.Watches.Clear()
		registrar = c.cfg.Watches
	}
	barBuilder := c.builder(rs, registrar)
	menuBar := barBuilder.Merge(rs.RootPath, rs.SecondaryRootPath, listen)
	dock := c.builder(rs, nil).Merge(rs.RootPath, rs.SecondaryRootPath, false)

	c.mu.Lock()
	c.stats.Rebuilds++
	generation := c.stats.Rebuilds
	c.mu.Unlock()

	snap := &menu.Snapshot{
		Generation: generation,
		BuiltAt:    c.clock.Now(),
		Duration:   time.Since(start),
		MenuBar:    menuBar,
		Dock:       dock,
	}
	if listen {
		snap.Watched = c.cfg.Watches.Paths()
	}
	c.snapshot.Store(snap)

	leaves, submenus := menu.Count(menuBar)
	st := barBuilder.Stats()
	c.logger.Info("menu rebuilt",
		"generation", generation,
		"leaves", leaves,
		"submenus", submenus,
		"watched", len(snap.Watched),
		"duration", snap.Duration.Round(time.Millisecond))
	if st.WatchFailures > 0 {
		c.logger.Warn("some directories are not watched", "count", st.WatchFailures)
	}

	if c.cfg.OnPublish != nil {
		c.cfg.OnPublish(snap)
	}
}

func (c *Coordinator) builder(rs RebuildState, registrar apptree.Registrar) *apptree.Builder {
	var yield apptree.Yielder
	if c.cfg.YieldInterval > 0 {
		yield = apptree.NewRateLimitedYield(c.cfg.YieldInterval)
	}
	return apptree.New(apptree.Options{
		FS:                    c.cfg.FS,
		Localizer:             c.cfg.Localizer,
		Registrar:             registrar,
		Sorter:                c.sorter,
		Yield:                 yield,
		Logger:                c.logger,
		MaxDepth:              c.cfg.MaxDepth,
		IgnoringParenthesized: rs.IgnoringParenthesized,
	})
}
