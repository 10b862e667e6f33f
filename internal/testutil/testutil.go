// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// MustMkdirAll creates a directory along with any necessary parents on fs.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, fs afero.Fs, path string) {
	t.Helper()
	if err := fs.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes data to path on fs, creating parent directories.
// The test fails immediately if the operation fails.
func MustWriteFile(t testing.TB, fs afero.Fs, path string, data []byte) {
	t.Helper()
	MustMkdirAll(t, fs, filepath.Dir(path))
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MakeAppTree lays out an applications directory under root. Each entry is a
// slash-separated path relative to root:
//
//   - a path ending in "/" or in ".app" becomes a directory
//   - a path prefixed with "legacy:" becomes a package directory whose
//     Contents/PkgInfo declares an application
//   - anything else becomes an empty file
//
// Parents are created as needed.
//
//	testutil.MakeAppTree(t, fs, "/Apps",
//		"Mail.app",
//		"Utilities/Terminal.app",
//		"legacy:Old Editor",
//		"README",
//	)
func MakeAppTree(t testing.TB, fs afero.Fs, root string, entries ...string) {
	t.Helper()
	MustMkdirAll(t, fs, root)
	for _, entry := range entries {
		switch {
		case strings.HasPrefix(entry, "legacy:"):
			dir := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(entry, "legacy:")))
			MustWriteFile(t, fs, filepath.Join(dir, "Contents", "PkgInfo"), []byte("APPL????"))
		case strings.HasSuffix(entry, "/"), strings.HasSuffix(strings.ToLower(entry), ".app"):
			MustMkdirAll(t, fs, filepath.Join(root, filepath.FromSlash(entry)))
		default:
			MustWriteFile(t, fs, filepath.Join(root, filepath.FromSlash(entry)), nil)
		}
	}
}
