//go:build unix

package watch

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isFatal reports errors after which the watcher can no longer cover the
// whole tree: the kernel refused another inotify watch or descriptor.
func isFatal(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.ENOSPC, unix.EMFILE, unix.ENFILE:
		return true
	default:
		return false
	}
}
