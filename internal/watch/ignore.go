package watch

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/config"
)

// SiteIgnores returns ignore patterns for a site: the destination and its
// staging siblings when they live inside the source root, plus the
// configured exclude list. Without them every build would trigger the next.
func SiteIgnores(cfg *config.Config) []string {
	var out []string
	if rel, err := filepath.Rel(cfg.Source, cfg.Destination); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		rel = filepath.ToSlash(rel)
		out = append(out, rel, rel+"/**", rel+".staging-*", rel+".staging-*/**")
	}
	for _, p := range cfg.Exclude {
		p = strings.Trim(filepath.ToSlash(p), "/")
		if p == "" {
			continue
		}
		out = append(out, p, p+"/**")
	}
	return out
}
