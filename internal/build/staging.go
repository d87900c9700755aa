package build

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

const stagingInfix = ".staging-"

// beginStaging creates an empty sibling of dest for the run's output. Keeping
// it on the same filesystem as dest makes the publish step a rename.
func beginStaging(dest, id string) (string, error) {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &WriteError{Op: "mkdir", Path: parent, Err: err}
	}
	stage, err := os.MkdirTemp(parent, filepath.Base(dest)+stagingInfix+id+"-")
	if err != nil {
		return "", &WriteError{Op: "mkdir", Path: parent, Err: err}
	}
	// MkdirTemp creates 0700; published output is meant to be world readable.
	if err := os.Chmod(stage, 0o755); err != nil {
		abortStaging(stage)
		return "", &WriteError{Op: "mkdir", Path: stage, Err: err}
	}
	slog.Debug("Initialized staging directory", logfields.Path(stage), slog.String("destination", dest))
	return stage, nil
}

// abortStaging removes a staging directory left by a failed run.
func abortStaging(stage string) {
	if stage == "" {
		return
	}
	if err := os.RemoveAll(stage); err != nil {
		slog.Warn("Failed to remove staging directory", logfields.Path(stage), logfields.Error(err))
	}
}

// publish makes stage visible at dest in one step. The previous output stays
// complete at dest until the replacement happens and is removed afterwards.
func publish(stage, dest string) error {
	if _, err := os.Lstat(dest); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(stage, dest); err != nil {
			return &WriteError{Op: "publish", Path: dest, Err: err}
		}
		return nil
	} else if err != nil {
		return &WriteError{Op: "publish", Path: dest, Err: err}
	}
	return exchange(stage, dest)
}

// renameAside moves dest to a backup name, renames stage into place and drops
// the backup. Between the two renames dest does not exist.
func renameAside(stage, dest string) error {
	prev := stage + ".prev"
	if err := os.Rename(dest, prev); err != nil {
		return &WriteError{Op: "publish", Path: dest, Err: err}
	}
	if err := os.Rename(stage, dest); err != nil {
		if rerr := os.Rename(prev, dest); rerr != nil {
			slog.Error("Failed to restore previous output", logfields.Path(dest), logfields.Error(rerr))
		}
		return &WriteError{Op: "publish", Path: dest, Err: err}
	}
	removePrevious(prev)
	return nil
}

func removePrevious(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove previous output", logfields.Path(dir), logfields.Error(err))
	}
}
