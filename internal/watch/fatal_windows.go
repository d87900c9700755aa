//go:build windows

package watch

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

func isFatal(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case windows.ERROR_NOT_ENOUGH_MEMORY, windows.ERROR_TOO_MANY_OPEN_FILES:
		return true
	default:
		return false
	}
}
