package config

import (
	"path/filepath"
	"regexp"
	"strings"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

var collectionName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// PermalinkStyles are the built-in permalink pattern names.
var PermalinkStyles = map[string]string{
	"date":    "/:categories/:year/:month/:day/:title:output_ext",
	"pretty":  "/:categories/:year/:month/:day/:title/",
	"ordinal": "/:categories/:year/:y_day/:title:output_ext",
	"none":    "/:categories/:title:output_ext",
}

// Validate checks the defaulted configuration.
func (c *Config) Validate() error {
	if c.Build.Workers < 0 {
		return ferrors.ConfigError("build.workers must not be negative").
			WithContext("workers", c.Build.Workers).
			Build()
	}
	if c.Build.MaxIncludeDepth < 0 {
		return ferrors.ConfigError("build.max_include_depth must not be negative").
			WithContext("max_include_depth", c.Build.MaxIncludeDepth).
			Build()
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return ferrors.ConfigError("serve.port out of range").
			WithContext("port", c.Serve.Port).
			Build()
	}
	if c.Serve.Debounce < 0 || c.Serve.RebuildInterval < 0 {
		return ferrors.ConfigError("serve durations must not be negative").Build()
	}
	if err := validatePermalink("permalink", c.Permalink); err != nil {
		return err
	}
	for name, coll := range c.Collections {
		if !collectionName.MatchString(name) {
			return ferrors.ConfigError("invalid collection name").
				WithContext("collection", name).
				Build()
		}
		if err := validatePermalink("collections."+name+".permalink", coll.Permalink); err != nil {
			return err
		}
	}
	if c.Source != "" && c.Destination != "" {
		src := filepath.Clean(c.Source)
		dst := filepath.Clean(c.Destination)
		if src == dst {
			return ferrors.ConfigError("destination must differ from source").
				WithContext("destination", dst).
				Build()
		}
		if rel, err := filepath.Rel(dst, src); err == nil && !strings.HasPrefix(rel, "..") {
			return ferrors.ConfigError("source must not live inside destination").
				WithContext("destination", dst).
				Build()
		}
	}
	return nil
}

func validatePermalink(field, p string) error {
	if p == "" {
		return nil
	}
	if _, ok := PermalinkStyles[p]; ok {
		return nil
	}
	if !strings.HasPrefix(p, "/") {
		return ferrors.ConfigError("permalink must start with / or name a built-in style").
			WithContext("field", field).
			WithContext("permalink", p).
			Build()
	}
	return nil
}

// PermalinkPattern expands a built-in style name to its pattern.
func PermalinkPattern(p string) string {
	if style, ok := PermalinkStyles[p]; ok {
		return style
	}
	return p
}
