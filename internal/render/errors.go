package render

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// BodyPosition is the chain position reported for failures in a unit's own body.
const BodyPosition = -1

// Error is a render failure of one unit. Position is the index into Chain
// (innermost layout is 0) or BodyPosition when the unit body itself failed.
type Error struct {
	Source   string
	Layout   string
	Position int
	Chain    []string
	Err      error
}

func (e *Error) Error() string {
	if e.Position == BodyPosition {
		return fmt.Sprintf("render %s: body: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("render %s: layout %q (chain position %d of [%s]): %v",
		e.Source, e.Layout, e.Position, strings.Join(e.Chain, " -> "), e.Err)
}

func (e *Error) Unwrap() error                   { return e.Err }
func (e *Error) Category() ferrors.ErrorCategory { return ferrors.CategoryRender }

// RecursionLimitError reports include nesting deeper than the configured bound.
type RecursionLimitError struct {
	Include string
	Limit   int
	Stack   []string // includes being evaluated, outermost first
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("include %q exceeds depth limit %d (stack: %s)", e.Include, e.Limit, strings.Join(e.Stack, " > "))
}

func (e *RecursionLimitError) Category() ferrors.ErrorCategory { return ferrors.CategoryRender }

// IncludeNotFoundError reports an include of a partial that does not exist.
type IncludeNotFoundError struct {
	Name string
}

func (e *IncludeNotFoundError) Error() string {
	return fmt.Sprintf("include %q not found", e.Name)
}
