// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that build application
// directory fixtures and drive time deterministically.
//
// Fixtures go through afero so the same layout can be created in memory
// (afero.NewMemMapFs) or on disk under t.TempDir (afero.NewOsFs) when a test
// needs real filesystem notifications.
package testutil
