package build

import (
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// StageErrorKind enumerates how a state failed.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError is the Failed(stage, cause) outcome of a run. It deliberately
// carries no category of its own so the cause's category decides exit codes.
type StageError struct {
	Kind  StageErrorKind
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage State, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newCanceledStageError(stage State, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// FailedStage returns the state a failed run stopped in.
func FailedStage(err error) (State, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// WriteError reports a staging or publish failure.
type WriteError struct {
	Op   string // mkdir, write, copy, publish, cleanup
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error                   { return e.Err }
func (e *WriteError) Category() ferrors.ErrorCategory { return ferrors.CategoryWrite }
