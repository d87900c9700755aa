package permalink

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// Collision is one output file claimed by more than one source.
type Collision struct {
	OutputPath string
	Sources    []string
}

// CollisionError lists every output path that more than one source resolves to.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		parts = append(parts, fmt.Sprintf("/%s <- %s", c.OutputPath, strings.Join(c.Sources, ", ")))
	}
	return "url collision: " + strings.Join(parts, "; ")
}

func (e *CollisionError) Category() ferrors.ErrorCategory { return ferrors.CategoryURL }

// Sources returns every colliding source path in order of appearance.
func (e *CollisionError) Sources() []string {
	var out []string
	for _, c := range e.Collisions {
		out = append(out, c.Sources...)
	}
	return out
}

// InvalidError reports a permalink that expands to an unusable URL.
type InvalidError struct {
	Path      string
	Permalink string
	Reason    string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("permalink %q of %s: %s", e.Permalink, e.Path, e.Reason)
}

func (e *InvalidError) Category() ferrors.ErrorCategory { return ferrors.CategoryURL }
