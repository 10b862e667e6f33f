// SPDX-License-Identifier: MPL-2.0

// Package classify decides what a single directory entry contributes to the
// application menu.
//
// Classification is a closed set: every entry is Ignore, AppBundle,
// SubDirectory or LegacyApp. Display-name filtering (for example GUID-shaped
// installer artifacts) is not done here; see package apptree.
package classify

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Ignore entries contribute nothing.
	Ignore Category = iota
	// AppBundle is a directory named with the application bundle suffix.
	AppBundle
	// SubDirectory is a plain directory to recurse into.
	SubDirectory
	// LegacyApp is a package directory whose descriptor declares an
	// application, without the bundle suffix.
	LegacyApp
)

const (
	// BundleSuffix marks an application bundle directory. Matched
	// case-insensitively.
	BundleSuffix = ".app"

	// ApplicationPackageType is the package type code of an application.
	ApplicationPackageType = "APPL"

	hiddenPrefix = "."
)

// ErrInvalidCategory is returned when a Category value is not recognized.
var ErrInvalidCategory = errors.New("invalid category")

type (
	// Category is the outcome of classifying one entry.
	Category int

	// InvalidCategoryError is returned when a Category value is not recognized.
	// It wraps ErrInvalidCategory for errors.Is() compatibility.
	InvalidCategoryError struct {
		Value Category
	}

	// Entry is one listed directory entry. It is produced by listing a
	// directory and consumed immediately; it is never retained.
	Entry struct {
		Name     string
		FullPath string
		// IsDir reports a real directory. Symbolic links report false even
		// when they point at a directory.
		IsDir bool
	}

	// PackageDescriptor is the type/creator pair recorded inside a package
	// directory.
	PackageDescriptor struct {
		Type    string
		Creator string
	}

	// PackageProber reads the package descriptor of a directory, reporting
	// false when the directory is not a recognized package.
	PackageProber interface {
		StatPackage(path string) (PackageDescriptor, bool)
	}

	// Classifier applies the classification rules. The zero value is not
	// usable; construct with New.
	Classifier struct {
		probe                 PackageProber
		ignoringParenthesized bool
	}
)

// New returns a Classifier. When ignoringParenthesized is set, entries whose
// names are wrapped in parentheses are ignored.
func New(probe PackageProber, ignoringParenthesized bool) *Classifier {
	return &Classifier{probe: probe, ignoringParenthesized: ignoringParenthesized}
}

// Classify decides the category of e. Rules apply in order: hidden or empty
// names, parenthesized names (when enabled), non-directories, bundle suffix,
// package descriptor, and finally plain subdirectory.
func (c *Classifier) Classify(e Entry) Category {
	if e.Name == "" || strings.HasPrefix(e.Name, hiddenPrefix) {
		return Ignore
	}
	if c.ignoringParenthesized && IsParenthesized(e.Name) {
		return Ignore
	}
	if !e.IsDir {
		return Ignore
	}
	if HasBundleSuffix(e.Name) {
		return AppBundle
	}
	if c.probe != nil {
		if desc, ok := c.probe.StatPackage(e.FullPath); ok && desc.IsApplication() {
			return LegacyApp
		}
	}
	return SubDirectory
}

// IsApplication reports whether the descriptor declares an application.
func (d PackageDescriptor) IsApplication() bool {
	return d.Type == ApplicationPackageType
}

// HasBundleSuffix reports whether name ends with BundleSuffix, ignoring case.
func HasBundleSuffix(name string) bool {
	return len(name) > len(BundleSuffix) &&
		strings.EqualFold(name[len(name)-len(BundleSuffix):], BundleSuffix)
}

// TrimBundleSuffix removes BundleSuffix from name, ignoring case.
func TrimBundleSuffix(name string) string {
	if HasBundleSuffix(name) {
		return name[:len(name)-len(BundleSuffix)]
	}
	return name
}

// IsParenthesized reports whether name is wrapped in "(" and ")".
func IsParenthesized(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")")
}

// IsGUIDShaped reports whether name is wrapped in "{" and "}".
func IsGUIDShaped(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}")
}

// String returns a human-readable representation of the category.
func (c Category) String() string {
	switch c {
	case Ignore:
		return "ignore"
	case AppBundle:
		return "app-bundle"
	case SubDirectory:
		return "subdirectory"
	case LegacyApp:
		return "legacy-app"
	default:
		return "unknown"
	}
}

// Validate returns nil if the Category is one of the defined categories.
func (c Category) Validate() error {
	switch c {
	case Ignore, AppBundle, SubDirectory, LegacyApp:
		return nil
	default:
		return &InvalidCategoryError{Value: c}
	}
}

// Error implements the error interface for InvalidCategoryError.
func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %d (valid: 0=ignore, 1=app-bundle, 2=subdirectory, 3=legacy-app)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidCategoryError) Unwrap() error {
	return ErrInvalidCategory
}
