// Package rebuild serializes serve-mode rebuilds and owns the snapshot the
// dev server reads.
//
// At most one rebuild runs at a time. Triggers that arrive while a rebuild
// is running collapse into a single pending rerun. A successful rebuild
// swaps the snapshot and advances the live-reload generation; a failed one
// leaves both untouched and records the failure for display.
package rebuild

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/build"
	"git.home.luguber.info/inful/jellsite/internal/content"
	"git.home.luguber.info/inful/jellsite/internal/livereload"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/metrics"
)

// Snapshot is one successfully built site. Snapshots are never modified.
type Snapshot struct {
	Generation uint64
	Site       *content.Site
	Report     *build.Report
	Output     string // published directory to serve
	BuiltAt    time.Time
}

// Status is a point-in-time view of the controller.
type Status struct {
	Generation  uint64        `json:"generation"`
	Building    bool          `json:"building"`
	Pending     bool          `json:"pending"`
	Builds      int           `json:"builds"`
	Failures    int           `json:"failures"`
	Coalesced   int           `json:"coalesced"`
	LastFailure *Failure      `json:"last_failure,omitempty"`
	LastReport  *build.Report `json:"last_report,omitempty"`
}

// Controller runs rebuilds one at a time.
type Controller struct {
	builder  Builder
	channel  *livereload.Channel
	recorder metrics.Recorder

	snapshot atomic.Pointer[Snapshot]
	buildMu  sync.Mutex // held for the duration of one rebuild

	mu          sync.Mutex
	pending     *Trigger
	building    bool
	builds      int
	failures    int
	coalesced   int
	lastFailure *Failure
	lastReport  *build.Report

	wake    chan struct{}
	workers workerGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(c *Controller) { c.recorder = r } }

// New returns a Controller publishing generations on ch.
func New(b Builder, ch *livereload.Channel, opts ...Option) *Controller {
	c := &Controller{
		builder:  b,
		channel:  ch,
		recorder: metrics.NoopRecorder{},
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.channel == nil {
		c.channel = livereload.NewChannel(c.recorder)
	}
	return c
}

// Channel returns the live-reload channel the controller advances.
func (c *Controller) Channel() *livereload.Channel { return c.channel }

// Snapshot returns the site currently being served, or nil before the first
// successful build.
func (c *Controller) Snapshot() *Snapshot { return c.snapshot.Load() }

// Status returns counters and the last outcome.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Generation:  c.channel.Current(),
		Building:    c.building,
		Pending:     c.pending != nil,
		Builds:      c.builds,
		Failures:    c.failures,
		Coalesced:   c.coalesced,
		LastFailure: c.lastFailure,
		LastReport:  c.lastReport,
	}
}

// LastFailure returns the failure of the latest rebuild, or nil if it succeeded.
func (c *Controller) LastFailure() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFailure
}

// Trigger requests a rebuild without blocking. If one is already pending
// the request is merged into it.
func (c *Controller) Trigger(t Trigger) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	c.recorder.IncRebuildTrigger(t.Source)

	c.mu.Lock()
	if c.pending != nil {
		merged := c.pending.merge(t)
		c.pending = &merged
		c.coalesced++
		c.mu.Unlock()
		c.recorder.IncRebuildCoalesced()
		slog.Debug("Rebuild request coalesced", slog.String("source", t.Source), logfields.Count(len(t.Changes)))
		return
	}
	c.pending = &t
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Rebuild runs one rebuild synchronously, waiting for any running one first.
func (c *Controller) Rebuild(ctx context.Context, t Trigger) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	c.recorder.IncRebuildTrigger(t.Source)
	return c.rebuild(ctx, t)
}

// Start runs the trigger loop until ctx is done or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.workers.Go("rebuild-loop", func() { c.loop(ctx) })
}

// Stop waits for the loop and any in-flight rebuild, bounded by ctx. The
// loop itself ends when the context passed to Start is canceled.
func (c *Controller) Stop(ctx context.Context) error {
	return c.workers.StopAndWait(ctx)
}

func (c *Controller) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
		for {
			t, ok := c.takePending()
			if !ok {
				break
			}
			_ = c.rebuild(ctx, t)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (c *Controller) takePending() (Trigger, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Trigger{}, false
	}
	t := *c.pending
	c.pending = nil
	return t, true
}

func (c *Controller) rebuild(ctx context.Context, t Trigger) error {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	c.setBuilding(true)
	defer c.setBuilding(false)

	slog.Info("Rebuilding site", slog.String("source", t.Source), logfields.Count(len(t.Changes)))
	res, err := c.builder.Build(ctx, t)

	c.mu.Lock()
	c.builds++
	if res != nil && res.Report != nil {
		c.lastReport = res.Report
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			c.mu.Unlock()
			slog.Info("Rebuild abandoned", logfields.Error(err))
			return err
		}
		c.failures++
		c.lastFailure = newFailure(err, t)
		c.mu.Unlock()
		c.channel.Fail(err)
		slog.Warn("Rebuild failed; previous site keeps serving",
			logfields.Generation(c.channel.Current()), logfields.Error(err))
		return err
	}
	c.lastFailure = nil
	c.mu.Unlock()

	next := &Snapshot{
		Generation: c.channel.Current() + 1,
		Site:       res.Site,
		Report:     res.Report,
		Output:     res.Output,
		BuiltAt:    time.Now(),
	}
	// Publish the snapshot before announcing it so a reloading client finds it.
	c.snapshot.Store(next)
	gen := c.channel.Advance()
	slog.Info("Site updated", logfields.Generation(gen))
	return nil
}

func (c *Controller) setBuilding(on bool) {
	c.mu.Lock()
	c.building = on
	c.mu.Unlock()
}
