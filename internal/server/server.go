// Package server is the development HTTP server: it serves the latest
// published site and the live-reload endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/livereload"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/metrics"
	"git.home.luguber.info/inful/jellsite/internal/rebuild"
)

// Internal endpoints.
const (
	StatusPath  = "/__status"
	MetricsPath = "/__metrics"
)

// Options configures a Server.
type Options struct {
	Addr       string
	LiveReload bool
	// Registry is exposed at MetricsPath when set.
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Server serves one rebuild.Controller's snapshots.
type Server struct {
	ctrl *rebuild.Controller
	opts Options
	http *http.Server
	ln   net.Listener
}

// New returns a Server for ctrl. It does not listen until Start.
func New(ctrl *rebuild.Controller, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{ctrl: ctrl, opts: opts}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chain(s.opts.Logger))

	if s.opts.LiveReload {
		ch := s.ctrl.Channel()
		r.Method(http.MethodGet, livereload.PollPath, livereload.PollHandler(ch))
		r.Method(http.MethodGet, livereload.EventsPath, livereload.EventsHandler(ch))
		r.Method(http.MethodGet, livereload.ScriptPath, livereload.ScriptHandler())
	}
	r.Get(StatusPath, s.handleStatus)
	if s.opts.Registry != nil {
		r.Method(http.MethodGet, MetricsPath, metrics.HTTPHandler(s.opts.Registry))
	}

	site := s.site()
	r.Method(http.MethodGet, "/*", site)
	r.Method(http.MethodHead, "/*", site)
	return r
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves on a pre-bound listener.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.ln = ln
	// No WriteTimeout: the event stream stays open for as long as the page does.
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Dev server error", logfields.Error(err))
		}
	}()
	slog.Info("Serving site", logfields.URL("http://"+ln.Addr().String()+"/"))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Open event streams end when the live-reload channel is closed, which the
// caller does first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "shutdown dev server").Build()
	}
	slog.Info("Dev server stopped")
	return nil
}

func isInternalPath(p string) bool {
	return strings.HasPrefix(p, "/__")
}
