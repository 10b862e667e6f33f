// SPDX-License-Identifier: MPL-2.0

package apptree

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/appmenu/appmenu/internal/classify"
	"github.com/appmenu/appmenu/internal/menu"
	"github.com/appmenu/appmenu/internal/testutil"

	"github.com/spf13/afero"
)

// recordingRegistrar remembers every registered directory and can be told to
// reject some of them.
type recordingRegistrar struct {
	added  []string
	reject map[string]bool
}

func (r *recordingRegistrar) Add(path string) error {
	r.added = append(r.added, path)
	if r.reject[path] {
		return errors.New("watch limit reached")
	}
	return nil
}

// failingFS fails to list selected directories.
type failingFS struct {
	FileSystem
	fail map[string]bool
}

func (f failingFS) ListDirectory(path string) ([]classify.Entry, error) {
	if f.fail[path] {
		return nil, os.ErrPermission
	}
	return f.FileSystem.ListDirectory(path)
}

func memBuilder(t *testing.T, opts Options, entries ...string) *Builder {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.MakeAppTree(t, fs, "/Apps", entries...)
	if opts.FS == nil {
		opts.FS = NewFileSystem(fs)
	}
	return New(opts)
}

func TestBuildScenario(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{},
		"Mail.app",
		"Utilities/Terminal.app",
		"Games/Chess.app",
	)

	got := b.Build("/Apps", 0, false)

	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Chess", "Mail", "Utilities"}) {
		t.Fatalf("Build() titles = %v", titles)
	}

	chess := got[0]
	if !chess.IsLeaf() || chess.TargetPath != "/Apps/Games/Chess.app" {
		t.Errorf("Chess should be a hoisted leaf, got %+v", chess)
	}

	utilities := got[2]
	if utilities.Kind != menu.KindSubMenu {
		t.Fatalf("Utilities should be a submenu, got %s", utilities.Kind)
	}
	if titles := menu.Titles(utilities.Children); !slices.Equal(titles, []string{"Terminal"}) {
		t.Errorf("Utilities children = %v", titles)
	}
	if utilities.TargetPath != "/Apps/Utilities" {
		t.Errorf("Utilities target = %q", utilities.TargetPath)
	}
}

func TestBuildHoistsSingleEntryChains(t *testing.T) {
	t.Parallel()

	for depth := 1; depth <= DefaultMaxDepth; depth++ {
		segments := make([]string, depth)
		for i := range segments {
			segments[i] = "Level" + string(rune('A'+i))
		}
		appPath := strings.Join(segments, "/") + "/Deep.app"

		b := memBuilder(t, Options{}, appPath)
		got := b.Build("/Apps", 0, false)

		if len(got) != 1 {
			t.Fatalf("depth %d: Build() returned %d nodes, want 1", depth, len(got))
		}
		want := "/Apps/" + appPath
		if !got[0].IsLeaf() || got[0].Title != "Deep" || got[0].TargetPath != want {
			t.Errorf("depth %d: got %+v, want hoisted leaf %s", depth, got[0], want)
		}
	}
}

// The top-level category keeps its submenu even with a single entry, so a
// root holding only Utilities/X.app does not collapse to one leaf. Nested
// folders with the same name still hoist.
func TestBuildKeepsSingleEntryTopLevelCategory(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{}, "Utilities/Terminal.app", "Games/Utilities/Chess.app", "Games/Go.app")
	got := b.Build("/Apps", 0, false)

	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Games", "Utilities"}) {
		t.Fatalf("Build() = %v", titles)
	}
	utilities := got[1]
	if utilities.IsLeaf() || !slices.Equal(menu.Titles(utilities.Children), []string{"Terminal"}) {
		t.Errorf("Utilities = %+v, want a submenu holding only Terminal", utilities)
	}
	if titles := menu.Titles(got[0].Children); !slices.Equal(titles, []string{"Chess", "Go"}) {
		t.Errorf("Games = %v, want nested Utilities hoisted", titles)
	}
}

func TestBuildEmptyDirectoriesVanish(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{},
		"Empty/",
		"Nested/Empty/Deeper/",
		"OnlyFiles/readme.txt",
		"OnlyHidden/.Secret.app",
	)

	if got := b.Build("/Apps", 0, false); len(got) != 0 {
		t.Errorf("Build() = %v, want no nodes", menu.Titles(got))
	}
	if got := b.Build("/Apps/Nested", 1, false); len(got) != 0 {
		t.Errorf("Build(Nested) = %v, want no nodes", menu.Titles(got))
	}
}

func TestBuildDepthLimit(t *testing.T) {
	t.Parallel()

	chain := "L1/L2/L3/L4/L5/L6"

	tests := []struct {
		name    string
		entries []string
		want    []string
	}{
		{
			name:    "app at depth six is kept",
			entries: []string{chain + "/Shallow.app"},
			want:    []string{"Shallow"},
		},
		{
			name:    "subdirectory at depth six is not expanded",
			entries: []string{chain + "/L7/TooDeep.app"},
			want:    []string{},
		},
		{
			name: "deep entries drop out of a mixed tree",
			entries: []string{
				chain + "/Kept.app",
				chain + "/Also Kept.app",
				chain + "/L7/TooDeep.app",
				chain + "/L7/L8/Deeper.app",
			},
			want: []string{"L6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := memBuilder(t, Options{}, tt.entries...)
			got := b.Build("/Apps", 0, false)
			if titles := menu.Titles(got); !slices.Equal(titles, tt.want) {
				t.Errorf("Build() = %v, want %v", titles, tt.want)
			}

			menu.Walk(got, func(n *menu.Node, _ int) bool {
				if strings.Contains(n.TargetPath, "/L7") {
					t.Errorf("node from beyond the depth limit: %s", n.TargetPath)
				}
				return true
			})
		})
	}
}

func TestBuildMaxDepthOverride(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{MaxDepth: 1}, "A/Near.app", "A/B/Far.app")
	got := b.Build("/Apps", 0, false)

	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Near"}) {
		t.Errorf("Build() = %v, want [Near]", titles)
	}
}

func TestBuildGUIDFiltering(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{},
		"{5D2AE1F0-77}.app",
		"legacy:{LEGACY-01}",
		"{GROUP}/One.app",
		"{GROUP}/Two.app",
		"Keep.app",
	)

	got := b.Build("/Apps", 0, false)

	want := []string{"{GROUP}", "{LEGACY-01}", "Keep"}
	if titles := menu.Titles(got); !slices.Equal(titles, want) {
		t.Errorf("Build() = %v, want %v", titles, want)
	}
	if b.Stats().GUIDDropped != 1 {
		t.Errorf("GUIDDropped = %d, want 1", b.Stats().GUIDDropped)
	}
}

func TestBuildLocalizedGUIDIsDropped(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{
		Localizer: MapLocalizer{"/Apps/Setup.app": "{9F00}"},
	}, "Setup.app", "Other.app")

	if titles := menu.Titles(b.Build("/Apps", 0, false)); !slices.Equal(titles, []string{"Other"}) {
		t.Errorf("Build() = %v, want [Other]", titles)
	}
}

func TestBuildLegacyApps(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{
		Localizer: MapLocalizer{"/Apps/Old Editor": "Ignored Name"},
	}, "legacy:Old Editor", "Modern.app")

	got := b.Build("/Apps", 0, false)
	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Modern", "Old Editor"}) {
		t.Fatalf("Build() = %v", titles)
	}
	if !got[1].IsLeaf() || got[1].TargetPath != "/Apps/Old Editor" {
		t.Errorf("legacy app should be a leaf at its package path, got %+v", got[1])
	}
}

func TestBuildDisplayNames(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{
		Localizer: MapLocalizer{
			"/Apps/Calc.app":          "Calculator",
			"/Apps/Spiele":            "Games",
			"/Apps/Spiele/Chess.app":  "Schach",
			"/Apps/Spiele/Go.app":     "",
			"/Apps/Unlisted/Tool.app": "",
		},
	},
		"Calc.app",
		"Spiele/Chess.app",
		"Spiele/Go.app",
	)

	got := b.Build("/Apps", 0, false)
	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Calculator", "Games"}) {
		t.Fatalf("Build() = %v", titles)
	}
	if titles := menu.Titles(got[1].Children); !slices.Equal(titles, []string{"Go", "Schach"}) {
		t.Errorf("Games children = %v", titles)
	}
}

func TestBuildLocalizedSuffix(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{}, "Utilities.localized/Terminal.app", "Utilities.localized/Console.app")

	got := b.Build("/Apps", 0, false)
	if len(got) != 1 || got[0].Title != "Utilities" || got[0].TargetPath != "/Apps/Utilities.localized" {
		t.Errorf("Build() = %+v, want submenu Utilities", got)
	}
}

func TestBuildSortsCaseInsensitively(t *testing.T) {
	t.Parallel()

	b := memBuilder(t, Options{},
		"zebra.app",
		"Apple.app",
		"banana.app",
		"Cherry.app",
	)

	want := []string{"Apple", "banana", "Cherry", "zebra"}
	if titles := menu.Titles(b.Build("/Apps", 0, false)); !slices.Equal(titles, want) {
		t.Errorf("Build() = %v, want %v", titles, want)
	}
}

func TestBuildIgnoringParenthesized(t *testing.T) {
	t.Parallel()

	entries := []string{"(Old Stuff)/Ancient.app", "Mail.app", "(Beta).app"}

	kept := memBuilder(t, Options{}, entries...).Build("/Apps", 0, false)
	if titles := menu.Titles(kept); !slices.Equal(titles, []string{"(Beta)", "Ancient", "Mail"}) {
		t.Errorf("default Build() = %v", titles)
	}

	// The rule looks at the entry name, so "(Beta).app" is not parenthesized.
	dropped := memBuilder(t, Options{IgnoringParenthesized: true}, entries...).Build("/Apps", 0, false)
	if titles := menu.Titles(dropped); !slices.Equal(titles, []string{"(Beta)", "Mail"}) {
		t.Errorf("ignoring Build() = %v, want [(Beta) Mail]", titles)
	}
}

func TestBuildRegistersVisitedDirectories(t *testing.T) {
	t.Parallel()

	reg := &recordingRegistrar{}
	b := memBuilder(t, Options{Registrar: reg, MaxDepth: 2},
		"Mail.app",
		"Games/Chess.app",
		"Deep/Er/Est/Hidden.app",
	)

	b.Build("/Apps", 0, true)

	slices.Sort(reg.added)
	want := []string{"/Apps", "/Apps/Deep", "/Apps/Deep/Er", "/Apps/Games"}
	if !slices.Equal(reg.added, want) {
		t.Errorf("registered = %v, want %v", reg.added, want)
	}

	reg.added = nil
	b.Build("/Apps", 0, false)
	if len(reg.added) != 0 {
		t.Errorf("non-listening build registered %v", reg.added)
	}
}

func TestBuildWatchFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	reg := &recordingRegistrar{reject: map[string]bool{"/Apps/Games": true}}
	b := memBuilder(t, Options{Registrar: reg}, "Games/Chess.app", "Games/Go.app")

	got := b.Build("/Apps", 0, true)
	if len(got) != 1 || got[0].Title != "Games" || len(got[0].Children) != 2 {
		t.Errorf("Build() = %+v, want Games submenu", got)
	}
	if b.Stats().WatchFailures != 1 {
		t.Errorf("WatchFailures = %d, want 1", b.Stats().WatchFailures)
	}
}

func TestBuildListFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.MakeAppTree(t, fs, "/Apps", "Locked/A.app", "Locked/B.app", "Mail.app")

	b := New(Options{FS: failingFS{
		FileSystem: NewFileSystem(fs),
		fail:       map[string]bool{"/Apps/Locked": true},
	}})

	got := b.Build("/Apps", 0, false)
	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Mail"}) {
		t.Errorf("Build() = %v, want [Mail]", titles)
	}
	if b.Stats().ListFailures != 1 {
		t.Errorf("ListFailures = %d, want 1", b.Stats().ListFailures)
	}

	if got := b.Build("/does/not/exist", 0, false); len(got) != 0 {
		t.Errorf("missing root should build empty, got %v", menu.Titles(got))
	}
}

func TestBuildIgnoresSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	root := t.TempDir()
	fs := afero.NewOsFs()
	testutil.MakeAppTree(t, fs, root, "Real.app", "Other/Target.app", "Other/Second.app")
	if err := os.Symlink(filepath.Join(root, "Real.app"), filepath.Join(root, "Link.app")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "Other"), filepath.Join(root, "LinkedDir")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	got := New(Options{FS: OSFileSystem()}).Build(root, 0, false)
	if titles := menu.Titles(got); !slices.Equal(titles, []string{"Other", "Real"}) {
		t.Errorf("Build() = %v, want [Other Real]", titles)
	}
}

func TestBuildYieldsPerEntry(t *testing.T) {
	t.Parallel()

	y := &countingYield{}
	b := memBuilder(t, Options{Yield: y}, "A.app", "B.app", "Dir/C.app", "file.txt")

	b.Build("/Apps", 0, false)
	// Four root entries plus one entry inside Dir.
	if y.calls != 5 {
		t.Errorf("Yield() called %d times, want 5", y.calls)
	}
}

type countingYield struct{ calls int }

func (c *countingYield) Yield() { c.calls++ }

func TestStatPackage(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.MustWriteFile(t, fs, "/Apps/Full/Contents/PkgInfo", []byte("APPLttxt"))
	testutil.MustWriteFile(t, fs, "/Apps/TypeOnly/Contents/PkgInfo", []byte("APPL"))
	testutil.MustWriteFile(t, fs, "/Apps/Short/Contents/PkgInfo", []byte("AP"))
	testutil.MustMkdirAll(t, fs, "/Apps/Plain")

	pfs := NewFileSystem(fs)

	tests := []struct {
		path   string
		want   classify.PackageDescriptor
		wantOK bool
	}{
		{"/Apps/Full", classify.PackageDescriptor{Type: "APPL", Creator: "ttxt"}, true},
		{"/Apps/TypeOnly", classify.PackageDescriptor{Type: "APPL"}, true},
		{"/Apps/Short", classify.PackageDescriptor{}, false},
		{"/Apps/Plain", classify.PackageDescriptor{}, false},
	}
	for _, tt := range tests {
		got, ok := pfs.StatPackage(tt.path)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("StatPackage(%s) = (%+v, %v), want (%+v, %v)", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestListDirectory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.MakeAppTree(t, fs, "/Apps", "b.app", "a.txt", "C/")

	entries, err := NewFileSystem(fs).ListDirectory("/Apps")
	if err != nil {
		t.Fatalf("ListDirectory() error: %v", err)
	}
	want := []classify.Entry{
		{Name: "C", FullPath: "/Apps/C", IsDir: true},
		{Name: "a.txt", FullPath: "/Apps/a.txt", IsDir: false},
		{Name: "b.app", FullPath: "/Apps/b.app", IsDir: true},
	}
	if !slices.Equal(entries, want) {
		t.Errorf("ListDirectory() = %+v, want %+v", entries, want)
	}

	if _, err := NewFileSystem(fs).ListDirectory("/missing"); err == nil {
		t.Errorf("ListDirectory(/missing) should fail")
	}
}
