package layout

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// CycleError names a layout chain that refers back to itself.
type CycleError struct {
	Chain []string // first and last entries are the same layout
}

func (e *CycleError) Error() string {
	return "layout cycle: " + strings.Join(e.Chain, " -> ")
}

func (e *CycleError) Category() ferrors.ErrorCategory { return ferrors.CategoryLayout }

// NotFoundError reports a reference to a layout that does not exist.
type NotFoundError struct {
	Name     string
	Referrer string // unit or layout source path holding the reference
}

func (e *NotFoundError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("layout %q not found", e.Name)
	}
	return fmt.Sprintf("layout %q not found (referenced by %s)", e.Name, e.Referrer)
}

func (e *NotFoundError) Category() ferrors.ErrorCategory { return ferrors.CategoryLayout }
