// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Errors that match a known situation can also point at an
// Issue, a Markdown guide rendered with glamour.
package issue
