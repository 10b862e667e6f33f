// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// DarwinRootPath is the default applications directory on macOS.
	DarwinRootPath = "/Applications"
	// DarwinSecondaryRootPath holds the system applications on macOS 10.15+.
	DarwinSecondaryRootPath = "/System/Applications"
	// UnixRootPath is the default applications directory elsewhere.
	UnixRootPath = "/usr/share/applications"
)

var (
	// ErrInvalidRootPath is the sentinel error wrapped by InvalidRootPathError.
	ErrInvalidRootPath = errors.New("invalid root path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RootPath is an applications directory. The zero value selects the
	// platform default.
	RootPath string

	// InvalidRootPathError is returned when a RootPath is not absolute.
	// It wraps ErrInvalidRootPath for errors.Is() compatibility.
	InvalidRootPathError struct {
		Value RootPath
	}

	// Config holds the persisted settings.
	Config struct {
		// RootPath is the primary applications directory.
		RootPath RootPath `json:"root_path" mapstructure:"root_path"`
		// IgnoringParenthesized hides entries named "(...)".
		IgnoringParenthesized bool `json:"ignoring_parenthesized" mapstructure:"ignoring_parenthesized"`
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	return &Config{}
}

// String returns the string representation of the RootPath.
func (p RootPath) String() string { return string(p) }

// IsValid returns whether the RootPath is valid. The zero value is valid;
// anything else must be an absolute path.
func (p RootPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" || !filepath.IsAbs(string(p)) {
		return false, []error{&InvalidRootPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRootPathError.
func (e *InvalidRootPathError) Error() string {
	return fmt.Sprintf("invalid root path %q: must be empty or absolute", e.Value)
}

// Unwrap returns ErrInvalidRootPath for errors.Is() compatibility.
func (e *InvalidRootPathError) Unwrap() error { return ErrInvalidRootPath }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.RootPath.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// EffectiveRootPath returns RootPath, or the platform default when it is empty.
func (c *Config) EffectiveRootPath() string {
	return effectiveRootPath(c.RootPath, runtime.GOOS)
}

func effectiveRootPath(p RootPath, goos string) string {
	if p != "" {
		return filepath.Clean(string(p))
	}
	if goos == "darwin" {
		return DarwinRootPath
	}
	return UnixRootPath
}

// DefaultSecondaryRootPath returns the system applications directory on macOS
// when it exists, and "" everywhere else.
func DefaultSecondaryRootPath() string {
	if runtime.GOOS != "darwin" {
		return ""
	}
	if info, err := os.Stat(DarwinSecondaryRootPath); err != nil || !info.IsDir() {
		return ""
	}
	return DarwinSecondaryRootPath
}
