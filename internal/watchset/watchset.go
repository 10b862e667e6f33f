// SPDX-License-Identifier: MPL-2.0

// Package watchset keeps one filesystem watch per directory and reports
// changes to the directories it watches.
//
// Every notification is mapped to the watched directory it concerns. Changes
// to a directory's entries arrive as Modified events for that directory. When a
// watched directory itself is deleted or renamed its handle is removed from the
// set first and an Invalidated event follows; the next rebuild re-registers
// whatever still exists.
package watchset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	// Modified reports that entries of a watched directory changed.
	Modified EventKind = iota
	// Invalidated reports that the watched directory itself was deleted,
	// renamed or replaced.
	Invalidated
	// Overflowed reports that the backend dropped notifications. Path is
	// empty because any watched directory may have changed.
	Overflowed
)

const (
	// Active marks a handle whose watch is registered.
	Active Liveness = iota
	// Dead marks a handle whose watch was invalidated or removed.
	Dead
)

var (
	// ErrClosed is returned by operations on a closed WatchSet.
	ErrClosed = errors.New("watchset: closed")
	// ErrBackendExhausted is wrapped by Run when the backend ran out of
	// watch descriptors or file handles.
	ErrBackendExhausted = errors.New("watchset: notification backend exhausted")
)

// defaultIgnores match entry names the classifier always skips, so their
// changes can never alter a menu. Scratch-file patterns such as "*.tmp" are
// not included: a directory with that name can still hold applications.
var defaultIgnores = []string{".*"}

type (
	// EventKind distinguishes in-place modification from invalidation.
	EventKind int

	// Liveness is the state of a watch handle.
	Liveness int

	// Handle describes one watched directory.
	Handle struct {
		Path     string
		Liveness Liveness
	}

	// Event is a change notification for a watched directory.
	Event struct {
		// Path is the watched directory the change belongs to.
		Path string
		// Kind is Modified, Invalidated or Overflowed.
		Kind EventKind
		// Name is the path the underlying notification named.
		Name string
		// Op is the underlying notification operation.
		Op fsnotify.Op
	}

	// Backend is the notification primitive a WatchSet drives.
	// *fsnotify.Watcher satisfies it through NewFSNotifyBackend.
	Backend interface {
		Add(path string) error
		Remove(path string) error
		Events() <-chan fsnotify.Event
		Errors() <-chan error
		Close() error
	}

	// Config holds the parameters for a WatchSet.
	Config struct {
		// Backend delivers notifications. Nil creates an fsnotify watcher.
		Backend Backend
		// Logger receives debug and warning output. Nil discards it.
		Logger *log.Logger
		// OnEvent is invoked from Run for every mapped event, after the
		// handle of an invalidated directory has been removed.
		OnEvent func(Event)
		// Ignore lists additional doublestar patterns matched against the
		// name of a changed entry. They are merged with the defaults.
		Ignore []string
	}

	// WatchSet is a set of directory watches keyed by cleaned path. The
	// methods are safe for concurrent use. Run must be called at most once.
	WatchSet struct {
		mu      sync.Mutex
		backend Backend
		handles map[string]*Handle
		ignores []string
		logger  *log.Logger
		onEvent func(Event)
		closed  bool
		started atomic.Bool
		once    sync.Once
	}

	fsnotifyBackend struct {
		w *fsnotify.Watcher
	}
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Invalidated:
		return "invalidated"
	case Overflowed:
		return "overflowed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// String returns the liveness name.
func (l Liveness) String() string {
	switch l {
	case Active:
		return "active"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("Liveness(%d)", int(l))
	}
}

// NewFSNotifyBackend returns a Backend backed by a new fsnotify watcher.
func NewFSNotifyBackend() (Backend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watchset: create fsnotify watcher: %w", err)
	}
	return fsnotifyBackend{w: w}, nil
}

func (b fsnotifyBackend) Add(path string) error         { return b.w.Add(path) }
func (b fsnotifyBackend) Remove(path string) error      { return b.w.Remove(path) }
func (b fsnotifyBackend) Events() <-chan fsnotify.Event { return b.w.Events }
func (b fsnotifyBackend) Errors() <-chan error          { return b.w.Errors }
func (b fsnotifyBackend) Close() error                  { return b.w.Close() }

// New creates a WatchSet from cfg. Ignore patterns are validated eagerly so a
// bad pattern fails here rather than silently never matching.
func New(cfg Config) (*WatchSet, error) {
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == nil {
		b, err := NewFSNotifyBackend()
		if err != nil {
			return nil, err
		}
		backend = b
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	return &WatchSet{
		backend: backend,
		handles: make(map[string]*Handle),
		ignores: ignores,
		logger:  logger,
		onEvent: cfg.OnEvent,
	}, nil
}

// Add watches path. Adding a path that is already watched is a no-op.
func (s *WatchSet) Add(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if h, ok := s.handles[path]; ok && h.Liveness == Active {
		return nil
	}
	if err := s.backend.Add(path); err != nil {
		return fmt.Errorf("watchset: add %q: %w", path, err)
	}
	s.handles[path] = &Handle{Path: path, Liveness: Active}
	s.logger.Debug("watch added", "path", path)
	return nil
}

// Remove stops watching path. Removing an unwatched path is a no-op.
func (s *WatchSet) Remove(path string) {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(path)
}

// Lookup returns the handle for path, if one is active.
func (s *WatchSet) Lookup(path string) (Handle, bool) {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[path]
	if !ok {
		return Handle{}, false
	}
	return *h, true
}

// Clear removes every watch.
func (s *WatchSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path := range s.handles {
		s.removeLocked(path)
	}
}

// Paths returns the watched directories in lexical order.
func (s *WatchSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.handles))
}

// Len returns the number of watched directories.
func (s *WatchSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Run delivers notifications to OnEvent until ctx is cancelled. It returns nil
// on cancellation and an error when the backend fails in a way the set cannot
// recover from. The set is closed when Run returns.
func (s *WatchSet) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("watchset: Run called more than once")
	}

	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Warn("closing watcher", "err", err)
		}
	}()

	events := s.backend.Events()
	errs := s.backend.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-events:
			if !ok {
				return errors.New("watchset: event channel closed unexpectedly")
			}
			if mapped, ok := s.handle(evt); ok && s.onEvent != nil {
				s.onEvent(mapped)
			}

		case err, ok := <-errs:
			if !ok {
				return errors.New("watchset: error channel closed unexpectedly")
			}
			// isFatalFsnotifyError is platform-specific (see fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("%w: %w", ErrBackendExhausted, err)
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Warn("notifications dropped", "err", err)
				if s.onEvent != nil {
					s.onEvent(Event{Kind: Overflowed})
				}
				continue
			}
			s.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// Close releases the backend. Further Add calls return ErrClosed.
func (s *WatchSet) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		for _, h := range s.handles {
			h.Liveness = Dead
		}
		clear(s.handles)
		s.mu.Unlock()
		err = s.backend.Close()
	})
	return err
}

// handle maps a raw notification onto the watched directory it concerns.
func (s *WatchSet) handle(evt fsnotify.Event) (Event, bool) {
	name := filepath.Clean(evt.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[name]; ok {
		if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
			s.removeLocked(name)
			s.logger.Debug("watch invalidated", "path", name, "op", evt.Op)
			return Event{Path: name, Kind: Invalidated, Name: name, Op: evt.Op}, true
		}
		return Event{Path: name, Kind: Modified, Name: name, Op: evt.Op}, true
	}

	parent := filepath.Dir(name)
	if _, ok := s.handles[parent]; !ok {
		return Event{}, false
	}
	if s.isIgnored(filepath.Base(name)) {
		return Event{}, false
	}
	return Event{Path: parent, Kind: Modified, Name: name, Op: evt.Op}, true
}

// removeLocked discards the handle for path. Must be called with mu held.
func (s *WatchSet) removeLocked(path string) {
	h, ok := s.handles[path]
	if !ok {
		return
	}
	h.Liveness = Dead
	delete(s.handles, path)
	// The backend drops watches on deleted directories by itself.
	if err := s.backend.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		s.logger.Debug("removing watch", "path", path, "err", err)
	}
}

// isIgnored reports whether an entry name matches an ignore pattern.
func (s *WatchSet) isIgnored(name string) bool {
	for _, pat := range s.ignores {
		if matched, err := doublestar.Match(pat, name); err == nil && matched {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watchset: invalid ignore pattern %q: %w", pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
