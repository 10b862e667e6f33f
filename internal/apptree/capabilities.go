// SPDX-License-Identifier: MPL-2.0

package apptree

import (
	"path/filepath"
	"strings"

	"github.com/appmenu/appmenu/internal/classify"
)

// localizedSuffix marks a directory whose display name omits the suffix.
const localizedSuffix = ".localized"

type (
	// Localizer looks up the localized display name of a path.
	Localizer interface {
		LocalizedDisplayName(path string) (string, bool)
	}

	// Resolver maps shortcut or alias entries to the entry they stand for.
	Resolver interface {
		Resolve(e classify.Entry) classify.Entry
	}

	// Registrar records a directory that should be watched for changes.
	Registrar interface {
		Add(path string) error
	}

	// SuffixLocalizer strips a trailing ".localized" from directory names
	// and reports no localized name for anything else.
	SuffixLocalizer struct{}

	// MapLocalizer serves display names from a fixed path-to-name table.
	MapLocalizer map[string]string

	// PassThroughResolver returns every entry unchanged.
	PassThroughResolver struct{}
)

// LocalizedDisplayName implements Localizer.
func (SuffixLocalizer) LocalizedDisplayName(path string) (string, bool) {
	base := filepath.Base(path)
	if len(base) > len(localizedSuffix) && strings.HasSuffix(base, localizedSuffix) {
		return strings.TrimSuffix(base, localizedSuffix), true
	}
	return "", false
}

// LocalizedDisplayName implements Localizer.
func (m MapLocalizer) LocalizedDisplayName(path string) (string, bool) {
	name, ok := m[filepath.Clean(path)]
	return name, ok && name != ""
}

// Resolve implements Resolver.
func (PassThroughResolver) Resolve(e classify.Entry) classify.Entry {
	return e
}
