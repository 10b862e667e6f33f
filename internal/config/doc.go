// SPDX-License-Identifier: MPL-2.0

// Package config handles appmenu's persisted settings using Viper with CUE as the file format.
//
// Settings are loaded from ~/.config/appmenu/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/appmenu/config.cue on macOS, %APPDATA%\appmenu\config.cue
// on Windows). Exactly two settings are persisted: the applications root directory and
// whether parenthesized entries are hidden. APPMENU_ROOT_PATH and
// APPMENU_IGNORING_PARENTHESIZED override the file.
//
// Files are validated against an embedded CUE schema (config_schema.cue) so unknown
// fields and wrong types are reported with their path.
package config
