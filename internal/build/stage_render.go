package build

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/jellsite/internal/layout"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/render"
)

// stageRender resolves every layout chain, which rejects cycles and missing
// parents before any unit is rendered, then renders units on a bounded pool.
func (o *Orchestrator) stageRender(ctx context.Context, bs *buildState) error {
	reg, err := layout.NewRegistry(bs.site.Layouts)
	if err != nil {
		return err
	}
	r := render.New(bs.site, reg, o.md, o.renderOpts...)

	bs.targets = bs.site.Rendered()
	bs.output = make([][]byte, len(bs.targets))
	errs := make([]error, len(bs.targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, u := range bs.targets {
		g.Go(func() error {
			out, err := r.Render(gctx, u)
			if err != nil {
				errs[i] = err
				return err
			}
			bs.output[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return firstRenderError(errs, err)
	}
	slog.Debug("Rendered units", logfields.BuildID(bs.id), logfields.Count(len(bs.targets)), slog.Int("workers", o.workers))
	return nil
}

// firstRenderError prefers the failure of the earliest unit that did not
// merely observe the group's cancellation.
func firstRenderError(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return fallback
}
