package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/jellsite/internal/build"
	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/livereload"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/metrics"
	"git.home.luguber.info/inful/jellsite/internal/rebuild"
	"git.home.luguber.info/inful/jellsite/internal/server"
	"git.home.luguber.info/inful/jellsite/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host            string        `help:"Listen host (overrides serve.host)"`
	Port            int           `short:"p" help:"Listen port (overrides serve.port)"`
	NoLiveReload    bool          `name:"no-livereload" help:"Disable live reload script injection and endpoints"`
	RebuildInterval time.Duration `name:"rebuild-interval" help:"Rebuild periodically, e.g. 1h (overrides serve.rebuild_interval)"`
	NATSURL         string        `name:"nats-url" help:"Also publish live-reload events to this NATS server"`

	// ready is called with the bound address once the server listens.
	ready func(addr string)
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return s.run(ctx, root)
}

func (s *ServeCmd) load(root *CLI) func() (*config.Config, error) {
	return func() (*config.Config, error) {
		cfg, err := root.LoadConfig()
		if err != nil {
			return nil, err
		}
		s.apply(cfg)
		return cfg, nil
	}
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.NoLiveReload {
		off := false
		cfg.Serve.LiveReload = &off
	}
	if s.RebuildInterval > 0 {
		cfg.Serve.RebuildInterval = config.Duration(s.RebuildInterval)
	}
	if s.NATSURL != "" {
		cfg.Serve.NATSURL = s.NATSURL
	}
}

func (s *ServeCmd) run(parent context.Context, root *CLI) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	load := s.load(root)
	cfg, err := load()
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheusRecorder(reg)
	channel := livereload.NewChannel(rec)

	builder := rebuild.NewSiteBuilder(load, build.WithRecorder(rec))
	ctrl := rebuild.New(builder, channel, rebuild.WithRecorder(rec))

	// A failed first build still serves: the failure page explains it.
	if err := ctrl.Rebuild(ctx, rebuild.Trigger{Source: rebuild.SourceInitial}); err != nil && ctx.Err() != nil {
		return nil
	}
	ctrl.Start(ctx)

	w, err := watch.New(watch.Config{
		Root:     cfg.Source,
		Ignore:   watch.SiteIgnores(cfg),
		Debounce: cfg.Serve.Debounce.Std(),
		OnChange: func(_ context.Context, changes []watch.Change) {
			ctrl.Trigger(rebuild.Trigger{Source: rebuild.SourceWatch, Changes: changes})
		},
	})
	if err != nil {
		return err
	}
	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(ctx) }()

	var sched *rebuild.Scheduler
	if iv := cfg.Serve.RebuildInterval.Std(); iv > 0 {
		if sched, err = rebuild.NewScheduler(ctrl, iv); err != nil {
			return err
		}
		sched.Start()
	}

	var relay *livereload.NATSRelay
	if cfg.Serve.NATSURL != "" {
		relay, err = livereload.ConnectNATS(cfg.Serve.NATSURL, cfg.Serve.NATSSubject)
		if err != nil {
			// The browser channel works without NATS.
			slog.Warn("NATS relay disabled", logfields.URL(cfg.Serve.NATSURL), logfields.Error(err))
		} else {
			go relay.Run(ctx, channel)
		}
	}

	srv := server.New(ctrl, server.Options{
		Addr:       cfg.Serve.Addr(),
		LiveReload: cfg.Serve.LiveReloadEnabled(),
		Registry:   reg,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Serving %s at http://%s/\n", cfg.Destination, srv.Addr())
	if s.ready != nil {
		s.ready(srv.Addr())
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-watchErr:
		if runErr != nil {
			slog.Error("Watcher stopped", logfields.Error(runErr))
		}
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	var errs []error
	if sched != nil {
		errs = append(errs, sched.Stop())
	}
	channel.Close()
	errs = append(errs, srv.Shutdown(stopCtx))
	if err := ctrl.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	if relay != nil {
		relay.Close()
	}
	errs = append(errs, runErr)
	return errors.Join(errs...)
}
