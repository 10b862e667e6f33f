// SPDX-License-Identifier: MPL-2.0

package apptree

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/appmenu/appmenu/internal/classify"

	"github.com/spf13/afero"
)

// pkgInfoPath is where a package directory records its type and creator
// codes, relative to the package root.
var pkgInfoPath = filepath.Join("Contents", "PkgInfo")

type (
	// FileSystem is the directory-walking capability the builder consumes.
	FileSystem interface {
		// ListDirectory returns the entries of path. Symbolic links are
		// reported as non-directories. Callers treat an error as an empty
		// listing.
		ListDirectory(path string) ([]classify.Entry, error)

		classify.PackageProber
	}

	// aferoFileSystem implements FileSystem on top of an afero.Fs.
	aferoFileSystem struct {
		fs afero.Fs
	}
)

// NewFileSystem returns a FileSystem backed by fs.
func NewFileSystem(fs afero.Fs) FileSystem {
	return &aferoFileSystem{fs: fs}
}

// OSFileSystem returns a FileSystem reading the host filesystem.
func OSFileSystem() FileSystem {
	return NewFileSystem(afero.NewOsFs())
}

// ListDirectory lists path in name order. Entry types come from Readdir,
// which does not follow symbolic links.
func (a *aferoFileSystem) ListDirectory(path string) ([]classify.Entry, error) {
	infos, err := afero.ReadDir(a.fs, path)
	if err != nil {
		return nil, fmt.Errorf("list directory %q: %w", path, err)
	}

	entries := make([]classify.Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, classify.Entry{
			Name:     info.Name(),
			FullPath: filepath.Join(path, info.Name()),
			IsDir:    info.Mode().IsDir(),
		})
	}
	return entries, nil
}

// StatPackage reads <path>/Contents/PkgInfo. The file holds a four-byte type
// code followed by a four-byte creator code.
func (a *aferoFileSystem) StatPackage(path string) (classify.PackageDescriptor, bool) {
	f, err := a.fs.Open(filepath.Join(path, pkgInfoPath))
	if err != nil {
		return classify.PackageDescriptor{}, false
	}
	defer f.Close() //nolint:errcheck // read-only file

	var buf [8]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return classify.PackageDescriptor{}, false
	}
	if n < 4 {
		return classify.PackageDescriptor{}, false
	}

	desc := classify.PackageDescriptor{Type: string(buf[:4])}
	if n == len(buf) {
		desc.Creator = string(buf[4:])
	}
	return desc, true
}
