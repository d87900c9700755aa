//go:build linux

package build

import (
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"

	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

// exchange swaps stage and dest with renameat2(RENAME_EXCHANGE): dest always
// names a complete tree. The old output ends up at stage and is removed.
// Filesystems without exchange support fall back to renameAside.
func exchange(stage, dest string) error {
	err := unix.Renameat2(unix.AT_FDCWD, stage, unix.AT_FDCWD, dest, unix.RENAME_EXCHANGE)
	switch {
	case err == nil:
		removePrevious(stage)
		return nil
	case errors.Is(err, unix.ENOSYS), errors.Is(err, unix.EINVAL), errors.Is(err, unix.EOPNOTSUPP):
		slog.Debug("Directory exchange unsupported, renaming aside", logfields.Path(dest), logfields.Error(err))
		return renameAside(stage, dest)
	default:
		return &WriteError{Op: "publish", Path: dest, Err: err}
	}
}
