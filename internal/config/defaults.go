package config

import (
	"path/filepath"
	"runtime"
	"time"
)

const (
	DefaultPermalink       = "/:year/:month/:day/:title/"
	DefaultDestination     = "_site"
	DefaultMaxIncludeDepth = 16
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 4000
	DefaultDebounce        = 200 * time.Millisecond
	DefaultNATSSubject     = "jellsite.generation"
)

// DefaultExclude is used when the configuration does not list exclusions.
var DefaultExclude = []string{"Gemfile", "Gemfile.lock", "node_modules", "vendor", ".git", ".gitignore", ".env", ".env.local"}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles the top-level site settings.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Permalink == "" {
		cfg.Permalink = DefaultPermalink
	}
	if cfg.Destination == "" {
		cfg.Destination = DefaultDestination
	}
	if !filepath.IsAbs(cfg.Destination) && cfg.Source != "" {
		cfg.Destination = filepath.Join(cfg.Source, cfg.Destination)
	}
	if cfg.Exclude == nil {
		cfg.Exclude = append([]string(nil), DefaultExclude...)
	}
	if cfg.Collections == nil {
		cfg.Collections = map[string]CollectionConfig{}
	}
	return nil
}

// BuildDefaultApplier handles Build configuration defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Build.MaxIncludeDepth == 0 {
		cfg.Build.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	return nil
}

// ServeDefaultApplier handles development server defaults.
type ServeDefaultApplier struct{}

func (ServeDefaultApplier) Domain() string { return "serve" }

func (ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = DefaultHost
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = DefaultPort
	}
	if cfg.Serve.Debounce == 0 {
		cfg.Serve.Debounce = Duration(DefaultDebounce)
	}
	if cfg.Serve.NATSSubject == "" {
		cfg.Serve.NATSSubject = DefaultNATSSubject
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	SiteDefaultApplier{},
	BuildDefaultApplier{},
	ServeDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
