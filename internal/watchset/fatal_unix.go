// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watchset

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports whether err leaves the watcher unusable. On
// inotify and kqueue these are the resource exhaustion errors: the watch
// limit (ENOSPC) and the per-process and system-wide descriptor limits
// (EMFILE, ENFILE).
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
