package rebuild

import (
	"errors"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/build"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/render"
)

// Failure describes a failed rebuild for the developer error page.
type Failure struct {
	Message  string                `json:"message"`
	Category ferrors.ErrorCategory `json:"category"`
	Stage    build.State           `json:"stage,omitempty"`
	Trigger  string                `json:"trigger"`
	At       time.Time             `json:"at"`

	// Set for template failures.
	Source   string   `json:"source,omitempty"`
	Layout   string   `json:"layout,omitempty"`
	Position *int     `json:"chain_position,omitempty"`
	Chain    []string `json:"chain,omitempty"`
}

func newFailure(err error, t Trigger) *Failure {
	f := &Failure{
		Message:  err.Error(),
		Category: ferrors.GetCategory(err),
		Trigger:  t.Source,
		At:       time.Now(),
	}
	if stage, ok := build.FailedStage(err); ok {
		f.Stage = stage
	}
	var rerr *render.Error
	if errors.As(err, &rerr) {
		pos := rerr.Position
		f.Source = rerr.Source
		f.Layout = rerr.Layout
		f.Position = &pos
		f.Chain = rerr.Chain
	}
	return f
}
