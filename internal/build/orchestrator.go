package build

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/content"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
	"git.home.luguber.info/inful/jellsite/internal/metrics"
	"git.home.luguber.info/inful/jellsite/internal/render"
)

// Result is the product of a successful run.
type Result struct {
	Site   *content.Site
	Report *Report
	Output string // published destination directory
}

// Orchestrator runs builds of one configured site. Runs are serialized; a
// second Run waits for the first to finish.
type Orchestrator struct {
	cfg        *config.Config
	fs         afero.Fs
	md         *markdown.Renderer
	conv       content.Converter
	recorder   metrics.Recorder
	now        func() time.Time
	workers    int
	renderOpts []render.Option

	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFs reads the source tree from fsys instead of the OS filesystem. Output
// is always written to the OS filesystem.
func WithFs(fsys afero.Fs) Option { return func(o *Orchestrator) { o.fs = fsys } }

// WithConverter replaces the default front matter and Markdown converter.
func WithConverter(c content.Converter) Option { return func(o *Orchestrator) { o.conv = c } }

// WithMarkdown sets the renderer used for conversion and the markdownify helper.
func WithMarkdown(md *markdown.Renderer) Option { return func(o *Orchestrator) { o.md = md } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

// WithClock sets the time source used for site.time and the future-date filter.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithWorkers bounds parallel rendering. Values below 1 keep the configured value.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRenderOptions passes options through to the template renderer.
func WithRenderOptions(opts ...render.Option) Option {
	return func(o *Orchestrator) { o.renderOpts = append(o.renderOpts, opts...) }
}

// New returns an Orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		workers:  cfg.Build.Workers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.md == nil {
		o.md = markdown.New()
	}
	if o.conv == nil {
		o.conv = content.NewMarkdownConverter(o.md)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}
	return o
}

// Config returns the configuration the orchestrator builds.
func (o *Orchestrator) Config() *config.Config { return o.cfg }

// Run executes one build. On failure the returned error is a *StageError
// naming the failed state, the Result still carries the report, and the
// previously published output is untouched.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := uuid.NewString()
	bs := &buildState{
		id:     id,
		now:    o.now(),
		report: newReport(id, time.Now()),
	}
	bs.report.Workers = o.workers
	slog.Info("Build started", logfields.BuildID(id), logfields.Path(o.cfg.Source), slog.String("destination", o.cfg.Destination))

	err := o.runStages(ctx, bs, []stage{
		{StateDiscovering, o.stageDiscover},
		{StateConverting, o.stageConvert},
		{StateResolvingURLs, o.stageResolve},
		{StateRendering, o.stageRender},
		{StateWriting, o.stageWrite},
	})
	bs.report.finish(time.Now(), err)
	o.recorder.ObserveBuildDuration(bs.report.Duration())

	if err != nil {
		abortStaging(bs.stage)
		o.recorder.IncBuildOutcome(outcomeLabel(bs.report.Outcome))
		logFailure(bs.report, err)
		return &Result{Report: bs.report}, err
	}

	o.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	o.recorder.SetRenderConcurrency(o.workers)
	for kind, n := range bs.report.Units {
		o.recorder.SetUnits(string(kind), n)
	}
	slog.Info("Build complete", logfields.BuildID(id), slog.String("summary", bs.report.Summary()))
	return &Result{Site: bs.site, Report: bs.report, Output: o.cfg.Destination}, nil
}

func outcomeLabel(o Outcome) metrics.OutcomeLabel {
	switch o {
	case OutcomeSuccess:
		return metrics.OutcomeSuccess
	case OutcomeCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

func logFailure(rep *Report, err error) {
	attrs := []any{logfields.BuildID(rep.ID), logfields.State(string(rep.FailedStage)), logfields.Error(err)}
	var rerr *render.Error
	if errors.As(err, &rerr) {
		attrs = append(attrs, logfields.Path(rerr.Source), logfields.Layout(rerr.Layout), logfields.ChainPosition(rerr.Position))
	}
	if rep.Outcome == OutcomeCanceled {
		slog.Warn("Build canceled", attrs...)
		return
	}
	slog.Error("Build failed", attrs...)
}
