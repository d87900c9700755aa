package build

import (
	"context"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/jellsite/internal/content"
	"git.home.luguber.info/inful/jellsite/internal/permalink"
)

func (o *Orchestrator) stageDiscover(ctx context.Context, bs *buildState) error {
	inv, err := content.NewDiscoverer(o.fs, o.cfg).Discover(ctx)
	if err != nil {
		return err
	}
	bs.inv = inv
	bs.report.Static = len(inv.Static)
	return nil
}

func (o *Orchestrator) stageConvert(ctx context.Context, bs *buildState) error {
	units, skipped, err := content.Assemble(ctx, o.cfg, bs.inv, o.conv, bs.now)
	if err != nil {
		return err
	}
	bs.units = units
	bs.report.SkippedDrafts = skipped.Drafts
	bs.report.SkippedFuture = skipped.Future
	for _, u := range units {
		bs.report.Units[u.Kind]++
		bs.report.Fingerprints[u.SourcePath] = mdfp.CalculateFingerprintFromParts(string(u.RawFrontMatter), string(u.RawBody))
	}
	return nil
}

// stageResolve assigns URLs and output paths, rejects collisions and freezes
// the unit set into a Site. Posts are ordered by NewSite.
func (o *Orchestrator) stageResolve(_ context.Context, bs *buildState) error {
	if err := permalink.New(o.cfg).Resolve(bs.units, bs.inv.Static); err != nil {
		return err
	}
	bs.site = content.NewSite(o.cfg, bs.now, bs.inv, bs.units)
	return nil
}
