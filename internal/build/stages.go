package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/content"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/metrics"
)

// buildState is the mutable state threaded through the stages of one run.
type buildState struct {
	id     string
	now    time.Time
	report *Report

	inv     *content.Inventory
	units   []*content.Unit
	site    *content.Site
	targets []*content.Unit
	output  [][]byte // rendered HTML, aligned with targets
	stage   string   // staging directory while one exists
}

// stageFunc performs the work of one state.
type stageFunc func(ctx context.Context, bs *buildState) error

type stage struct {
	state State
	run   stageFunc
}

// runStages executes stages in order, recording a transition per state. The
// first failure stops the run and is returned as a *StageError.
func (o *Orchestrator) runStages(ctx context.Context, bs *buildState, stages []stage) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			return newCanceledStageError(st.state, ctx.Err())
		default:
		}

		t0 := time.Now()
		bs.report.State = st.state
		err := st.run(ctx, bs)
		dur := time.Since(t0)
		bs.report.Transitions = append(bs.report.Transitions, Transition{State: st.state, Start: t0, Duration: dur})
		o.recorder.ObserveStageDuration(string(st.state), dur)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				o.recorder.IncStageResult(string(st.state), metrics.ResultCanceled)
				return newCanceledStageError(st.state, err)
			}
			o.recorder.IncStageResult(string(st.state), metrics.ResultFatal)
			return newFatalStageError(st.state, err)
		}
		o.recorder.IncStageResult(string(st.state), metrics.ResultSuccess)
		slog.Debug("Stage complete", logfields.BuildID(bs.id), logfields.Stage(string(st.state)), logfields.DurationMS(float64(dur.Microseconds())/1000))
	}
	return nil
}
