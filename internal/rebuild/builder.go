package rebuild

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/jellsite/internal/build"
	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/watch"
)

// Builder performs one rebuild for a trigger.
type Builder interface {
	Build(ctx context.Context, t Trigger) (*build.Result, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, t Trigger) (*build.Result, error)

func (f BuilderFunc) Build(ctx context.Context, t Trigger) (*build.Result, error) { return f(ctx, t) }

// SiteBuilder rebuilds the whole site with a build.Orchestrator. The
// configuration is loaded on first use and again whenever a trigger touches
// it, so edits to _config.yml take effect without restarting the server. A
// failed load is retried on every trigger until it succeeds.
type SiteBuilder struct {
	load func() (*config.Config, error)
	opts []build.Option

	mu   sync.Mutex
	orch *build.Orchestrator
}

// NewSiteBuilder returns a SiteBuilder using load for configuration.
func NewSiteBuilder(load func() (*config.Config, error), opts ...build.Option) *SiteBuilder {
	return &SiteBuilder{load: load, opts: opts}
}

func (b *SiteBuilder) Build(ctx context.Context, t Trigger) (*build.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.orch == nil || watch.Affects(t.Changes, watch.KindConfig) {
		cfg, err := b.load()
		if err != nil {
			// Drop the stale orchestrator so every later trigger reloads
			// until the configuration is valid again.
			b.orch = nil
			return nil, err
		}
		b.orch = build.New(cfg, b.opts...)
	}
	return b.orch.Run(ctx)
}
