package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
)

// FileNames lists the configuration files looked up at the source root, in order.
var FileNames = []string{"_config.yml", "_config.yaml"}

// Config is the site configuration read from _config.yml.
type Config struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	BaseURL     string `yaml:"baseurl"`
	Permalink   string `yaml:"permalink"`

	Source      string   `yaml:"-"`
	Destination string   `yaml:"destination"`
	Exclude     []string `yaml:"exclude"`
	Include     []string `yaml:"include"`

	Collections map[string]CollectionConfig `yaml:"collections"`
	Defaults    []DefaultsEntry             `yaml:"defaults"`

	Drafts bool `yaml:"drafts"`
	Future bool `yaml:"future"`

	Build BuildConfig `yaml:"build"`
	Serve ServeConfig `yaml:"serve"`

	// Raw holds the whole document, including keys the core does not
	// interpret (pagination, SEO, theme settings). Templates see it as site.*.
	Raw frontmatter.Value `yaml:"-"`

	// File is the configuration file that was read, empty when defaults were used.
	File string `yaml:"-"`
}

// CollectionConfig configures one named collection.
type CollectionConfig struct {
	Output    bool   `yaml:"output"`
	Permalink string `yaml:"permalink"`
}

// DefaultsEntry assigns front matter values to every unit matching Scope.
type DefaultsEntry struct {
	Scope  DefaultsScope     `yaml:"scope"`
	Values frontmatter.Value `yaml:"values"`
}

// DefaultsScope selects units by source path prefix and/or unit type
// (posts, pages, drafts or a collection name). Empty fields match everything.
type DefaultsScope struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

// BuildConfig tunes the build orchestrator.
type BuildConfig struct {
	Workers         int `yaml:"workers"`
	MaxIncludeDepth int `yaml:"max_include_depth"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	Debounce        Duration `yaml:"debounce"`
	LiveReload      *bool    `yaml:"livereload"`
	RebuildInterval Duration `yaml:"rebuild_interval"`
	NATSURL         string   `yaml:"nats_url"`
	NATSSubject     string   `yaml:"nats_subject"`
}

// LiveReloadEnabled reports the effective livereload setting.
func (s ServeConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// Addr returns host:port.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Override mutates a loaded configuration before defaults and validation run.
type Override func(*Config)

func WithDrafts(on bool) Override { return func(c *Config) { c.Drafts = on } }
func WithFuture(on bool) Override { return func(c *Config) { c.Future = on } }

// WithDestination overrides the output directory. Relative paths are taken
// relative to the current working directory, not the source root.
func WithDestination(dir string) Override {
	return func(c *Config) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		c.Destination = dir
	}
}

// Load reads <source>/_config.yml, applies overrides and defaults, and
// validates the result. A missing configuration file yields the defaults.
func Load(source string, overrides ...Override) (*Config, error) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "resolve source directory").Build()
	}
	if st, statErr := os.Stat(absSource); statErr != nil || !st.IsDir() {
		return nil, ferrors.ConfigError("source directory not found").
			WithContext("source", absSource).
			Build()
	}

	if err := loadEnvFiles(absSource); err != nil {
		slog.Warn("Failed to load environment files", "source", absSource, "error", err)
	}

	var (
		data []byte
		file string
	)
	for _, name := range FileNames {
		candidate := filepath.Join(absSource, name)
		b, readErr := os.ReadFile(candidate)
		if errors.Is(readErr, fs.ErrNotExist) {
			continue
		}
		if readErr != nil {
			return nil, ferrors.WrapError(readErr, ferrors.CategoryConfig, "read configuration").
				WithContext("file", candidate).
				Build()
		}
		data, file = b, candidate
		break
	}

	cfg, err := Parse(expandEnv(data))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration").
			WithContext("file", file).
			Build()
	}
	cfg.File = file
	cfg.Source = absSource

	for _, o := range overrides {
		o(cfg)
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration YAML without touching the filesystem.
// Defaults are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	raw, err := frontmatter.Decode(data)
	if err != nil {
		return nil, err
	}
	switch raw.Kind() {
	case frontmatter.KindNull:
		raw = frontmatter.EmptyMap()
	case frontmatter.KindMapping:
	default:
		return nil, fmt.Errorf("configuration must be a mapping, got %s", raw.Kind())
	}
	cfg.Raw = raw
	return cfg, nil
}

// NewDefault returns a fully defaulted configuration for source, useful for tests.
func NewDefault(source string) *Config {
	cfg := &Config{Source: source, Raw: frontmatter.EmptyMap()}
	_ = applyDefaults(cfg)
	return cfg
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references only; a bare $ is left alone.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
