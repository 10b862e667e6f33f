// SPDX-License-Identifier: MPL-2.0

package watchset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fakeBackend records registrations and lets tests inject notifications.
type fakeBackend struct {
	mu      sync.Mutex
	added   []string
	removed []string
	reject  map[string]error
	events  chan fsnotify.Event
	errors  chan error
	closed  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		reject: make(map[string]error),
		events: make(chan fsnotify.Event),
		errors: make(chan error),
	}
}

func (f *fakeBackend) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reject[path]; err != nil {
		return err
	}
	f.added = append(f.added, path)
	return nil
}

func (f *fakeBackend) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeBackend) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeBackend) Errors() <-chan error          { return f.errors }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) snapshot() (added, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.added), slices.Clone(f.removed)
}

func newFakeSet(t *testing.T, onEvent func(Event)) (*WatchSet, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	s, err := New(Config{Backend: backend, OnEvent: onEvent})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, backend
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	s, backend := newFakeSet(t, nil)
	for _, p := range []string{"/Apps", "/Apps/", "/Apps/./", "/Apps/Games"} {
		if err := s.Add(p); err != nil {
			t.Fatalf("Add(%q) error: %v", p, err)
		}
	}

	added, _ := backend.snapshot()
	if !slices.Equal(added, []string{"/Apps", "/Apps/Games"}) {
		t.Errorf("backend registrations = %v", added)
	}
	if got := s.Paths(); !slices.Equal(got, []string{"/Apps", "/Apps/Games"}) {
		t.Errorf("Paths() = %v", got)
	}

	h, ok := s.Lookup("/Apps/")
	if !ok || h.Path != "/Apps" || h.Liveness != Active {
		t.Errorf("Lookup() = %+v, %v", h, ok)
	}
}

func TestAddFailureLeavesPathUnwatched(t *testing.T) {
	t.Parallel()

	s, backend := newFakeSet(t, nil)
	backend.reject["/Apps/Locked"] = syscall.EACCES

	err := s.Add("/Apps/Locked")
	if !errors.Is(err, syscall.EACCES) {
		t.Fatalf("Add() error = %v, want EACCES", err)
	}
	if _, ok := s.Lookup("/Apps/Locked"); ok {
		t.Error("failed Add() should not leave a handle")
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	s, backend := newFakeSet(t, nil)
	for _, p := range []string{"/A", "/B", "/C"} {
		if err := s.Add(p); err != nil {
			t.Fatal(err)
		}
	}

	s.Remove("/B")
	s.Remove("/not-watched")
	if got := s.Paths(); !slices.Equal(got, []string{"/A", "/C"}) {
		t.Errorf("Paths() after Remove = %v", got)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d", s.Len())
	}
	_, removed := backend.snapshot()
	slices.Sort(removed)
	if !slices.Equal(removed, []string{"/A", "/B", "/C"}) {
		t.Errorf("backend removals = %v", removed)
	}

	// A cleared path can be added again.
	if err := s.Add("/A"); err != nil {
		t.Errorf("re-Add() error: %v", err)
	}
}

func TestHandleMapsNotifications(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		evt       fsnotify.Event
		want      Event
		wantOK    bool
		unwatched bool
	}{
		{
			name:   "new entry modifies its parent",
			evt:    fsnotify.Event{Name: "/Apps/New.app", Op: fsnotify.Create},
			want:   Event{Path: "/Apps", Kind: Modified, Name: "/Apps/New.app", Op: fsnotify.Create},
			wantOK: true,
		},
		{
			name:   "removed entry modifies its parent",
			evt:    fsnotify.Event{Name: "/Apps/Old.app", Op: fsnotify.Remove},
			want:   Event{Path: "/Apps", Kind: Modified, Name: "/Apps/Old.app", Op: fsnotify.Remove},
			wantOK: true,
		},
		{
			name:   "attribute change on the directory itself",
			evt:    fsnotify.Event{Name: "/Apps/Games", Op: fsnotify.Chmod},
			want:   Event{Path: "/Apps/Games", Kind: Modified, Name: "/Apps/Games", Op: fsnotify.Chmod},
			wantOK: true,
		},
		{
			name:      "deleted watched directory is invalidated",
			evt:       fsnotify.Event{Name: "/Apps/Games", Op: fsnotify.Remove},
			want:      Event{Path: "/Apps/Games", Kind: Invalidated, Name: "/Apps/Games", Op: fsnotify.Remove},
			wantOK:    true,
			unwatched: true,
		},
		{
			name:      "renamed watched directory is invalidated",
			evt:       fsnotify.Event{Name: "/Apps/Games/", Op: fsnotify.Rename},
			want:      Event{Path: "/Apps/Games", Kind: Invalidated, Name: "/Apps/Games", Op: fsnotify.Rename},
			wantOK:    true,
			unwatched: true,
		},
		{
			name: "hidden entry is ignored",
			evt:  fsnotify.Event{Name: "/Apps/.DS_Store", Op: fsnotify.Write},
		},
		{
			name:   "folder named like a scratch file is forwarded",
			evt:    fsnotify.Event{Name: "/Apps/Betas.tmp", Op: fsnotify.Create},
			want:   Event{Path: "/Apps", Kind: Modified, Name: "/Apps/Betas.tmp", Op: fsnotify.Create},
			wantOK: true,
		},
		{
			name:   "folder with a backup suffix is forwarded",
			evt:    fsnotify.Event{Name: "/Apps/Old~", Op: fsnotify.Remove},
			want:   Event{Path: "/Apps", Kind: Modified, Name: "/Apps/Old~", Op: fsnotify.Remove},
			wantOK: true,
		},
		{
			name: "unrelated path is dropped",
			evt:  fsnotify.Event{Name: "/elsewhere/file", Op: fsnotify.Write},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, _ := newFakeSet(t, nil)
			for _, p := range []string{"/Apps", "/Apps/Games"} {
				if err := s.Add(p); err != nil {
					t.Fatal(err)
				}
			}

			got, ok := s.handle(tt.evt)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("handle() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
			if _, watched := s.Lookup("/Apps/Games"); watched == tt.unwatched {
				t.Errorf("Lookup(/Apps/Games) watched = %v, want %v", watched, !tt.unwatched)
			}
		})
	}
}

func TestRunForwardsEvents(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []Event
		// The handle must already be gone when the callback runs.
		stillWatched bool
	)
	got := make(chan struct{}, 4)

	var s *WatchSet
	s, backend := newFakeSet(t, func(e Event) {
		mu.Lock()
		received = append(received, e)
		if e.Kind == Invalidated {
			_, stillWatched = s.Lookup(e.Path)
		}
		mu.Unlock()
		got <- struct{}{}
	})
	if err := s.Add("/Apps"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	backend.events <- fsnotify.Event{Name: "/Apps/Mail.app", Op: fsnotify.Create}
	backend.errors <- fsnotify.ErrEventOverflow
	backend.events <- fsnotify.Event{Name: "/Apps", Op: fsnotify.Remove}

	for range 3 {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	kinds := make([]EventKind, len(received))
	for i, e := range received {
		kinds[i] = e.Kind
	}
	if !slices.Equal(kinds, []EventKind{Modified, Overflowed, Invalidated}) {
		t.Errorf("event kinds = %v", kinds)
	}
	if stillWatched {
		t.Error("invalidated path was still watched during the callback")
	}
	if !backend.closed {
		t.Error("Run() should close the backend on return")
	}
	if err := s.Add("/Apps"); !errors.Is(err, ErrClosed) {
		t.Errorf("Add() after Run = %v, want ErrClosed", err)
	}
}

func TestRunFatalError(t *testing.T) {
	t.Parallel()

	s, backend := newFakeSet(t, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	errFatal := fatalError()
	backend.errors <- errFatal

	select {
	case err := <-errCh:
		if !errors.Is(err, errFatal) || !errors.Is(err, ErrBackendExhausted) {
			t.Errorf("Run() error = %v, want wrapped fatal error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop on a fatal error")
	}
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	s, _ := newFakeSet(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if err := s.Run(ctx); err == nil {
		t.Error("second Run() should fail")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Backend: newFakeBackend(), Ignore: []string{"[unclosed"}}); err == nil {
		t.Error("New() should reject an invalid ignore pattern")
	}
}

func TestConfiguredIgnoreDropsMatchingNames(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Backend: newFakeBackend(), Ignore: []string{"*.{part,crdownload}"}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := s.Add("/Apps"); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.handle(fsnotify.Event{Name: "/Apps/Setup.crdownload", Op: fsnotify.Create}); ok {
		t.Error("handle() forwarded a name matching a configured pattern")
	}
	if _, ok := s.handle(fsnotify.Event{Name: "/Apps/Betas.tmp", Op: fsnotify.Create}); !ok {
		t.Error("handle() dropped a name outside the configured patterns")
	}
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind EventKind
		want string
	}{
		{Modified, "modified"},
		{Invalidated, "invalidated"},
		{Overflowed, "overflowed"},
		{EventKind(9), "EventKind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// TestFSNotifyBackend drives a real fsnotify watcher on a temporary directory.
func TestFSNotifyBackend(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	games := filepath.Join(root, "Games")
	if err := os.Mkdir(games, 0o755); err != nil {
		t.Fatal(err)
	}

	events := make(chan Event, 16)
	s, err := New(Config{OnEvent: func(e Event) { events <- e }})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for _, p := range []string{root, games} {
		if err := s.Add(p); err != nil {
			t.Fatalf("Add(%q) error: %v", p, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	if err := os.Mkdir(filepath.Join(root, "Mail.app"), 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, func(e Event) bool { return e.Path == root && e.Kind == Modified })

	if err := os.RemoveAll(games); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, func(e Event) bool { return e.Path == games && e.Kind == Invalidated })

	if _, ok := s.Lookup(games); ok {
		t.Error("removed directory is still watched")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func waitFor(t *testing.T, events <-chan Event, match func(Event) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if match(e) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}
