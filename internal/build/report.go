package build

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/content"
)

// Outcome is the final result of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report captures what one run did. Reports are built by the orchestrator
// and must not be modified after Run returns.
type Report struct {
	ID          string               `json:"id"`
	Start       time.Time            `json:"start"`
	End         time.Time            `json:"end"`
	Transitions []Transition         `json:"transitions"`
	State       State                `json:"state"`
	FailedStage State                `json:"failed_stage,omitempty"`
	Error       string               `json:"error,omitempty"`
	Outcome     Outcome              `json:"outcome"`
	Workers     int                  `json:"workers"`
	Units       map[content.Kind]int `json:"units"`
	Static      int                  `json:"static"`
	Written     int                  `json:"written"`

	SkippedDrafts []string `json:"skipped_drafts,omitempty"`
	SkippedFuture []string `json:"skipped_future,omitempty"`

	// Fingerprints maps unit source paths to a digest of their front matter and body.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

func newReport(id string, start time.Time) *Report {
	return &Report{
		ID:           id,
		Start:        start,
		State:        StateIdle,
		Units:        map[content.Kind]int{},
		Fingerprints: map[string]string{},
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// StateDuration returns the time spent in state s.
func (r *Report) StateDuration(s State) time.Duration {
	for _, t := range r.Transitions {
		if t.State == s {
			return t.Duration
		}
	}
	return 0
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("id=%s outcome=%s posts=%d pages=%d documents=%d static=%d written=%d skipped=%d duration=%s",
		r.ID, r.Outcome, r.Units[content.KindPost], r.Units[content.KindPage], r.Units[content.KindDocument],
		r.Static, r.Written, len(r.SkippedDrafts)+len(r.SkippedFuture), r.Duration().Truncate(time.Millisecond))
}

// finish records the terminal state and derives the outcome from err.
func (r *Report) finish(end time.Time, err error) {
	r.End = end
	if err == nil {
		r.State = StateDone
		r.Outcome = OutcomeSuccess
		return
	}
	r.State = StateFailed
	r.Error = err.Error()
	r.Outcome = OutcomeFailed
	if se, ok := err.(*StageError); ok {
		r.FailedStage = se.Stage
		if se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
		}
	}
}
