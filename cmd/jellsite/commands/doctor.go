package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/jellsite/internal/content"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/layout"
)

// DefaultLayout is the layout doctor expects a site to provide.
const DefaultLayout = "default"

// Finding is one problem reported by doctor.
type Finding struct {
	Problem string
	Hint    string
}

// DoctorCmd implements the 'doctor' command.
type DoctorCmd struct{}

func (d *DoctorCmd) Run(_ *Global, root *CLI) error {
	return d.run(context.Background(), root, afero.NewOsFs(), os.Stdout)
}

func (d *DoctorCmd) run(ctx context.Context, root *CLI, fsys afero.Fs, out io.Writer) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	inv, err := content.NewDiscoverer(fsys, cfg).Discover(ctx)
	if err != nil {
		return err
	}

	findings := diagnose(cfg.File == "", inv)
	if _, err := layout.NewRegistry(inv.Layouts); err != nil {
		findings = append(findings, Finding{Problem: err.Error(), Hint: "break the cycle in the layout front matter"})
	}

	if len(findings) == 0 {
		_, _ = fmt.Fprintf(out, "%s: no problems found\n", cfg.Source)
		return nil
	}
	for _, f := range findings {
		_, _ = fmt.Fprintf(out, "- %s\n  %s\n", f.Problem, f.Hint)
	}
	return ferrors.ValidationError(fmt.Sprintf("%d problem(s) found", len(findings))).
		WithContext("source", cfg.Source).
		Build()
}

func diagnose(noConfig bool, inv *content.Inventory) []Finding {
	var out []Finding
	if noConfig {
		out = append(out, Finding{"no _config.yml", "defaults are used; create _config.yml to set title and permalinks"})
	}
	if len(inv.Layouts) == 0 {
		out = append(out, Finding{"no layouts in " + content.DirLayouts, "pages are written without a surrounding layout"})
	} else if !hasLayout(inv.Layouts, DefaultLayout) {
		out = append(out, Finding{"no " + DefaultLayout + " layout", "add " + content.DirLayouts + "/" + DefaultLayout + ".html"})
	}

	var posts int
	var index bool
	for _, s := range inv.Sources {
		if s.Kind == content.KindPost {
			posts++
		}
		if s.Kind == content.KindPage && path.Dir(s.Path) == "." && isIndex(path.Base(s.Path)) {
			index = true
		}
	}
	for _, st := range inv.Static {
		if st.OutputPath == "index.html" {
			index = true
		}
	}
	if posts == 0 {
		out = append(out, Finding{"no posts in " + content.DirPosts, "posts are named YYYY-MM-DD-title.md"})
	}
	if !index {
		out = append(out, Finding{"no index page", "add index.html or index.md at the source root"})
	}
	return out
}

func hasLayout(layouts []content.Layout, name string) bool {
	for _, l := range layouts {
		if l.Name == name {
			return true
		}
	}
	return false
}

func isIndex(base string) bool {
	switch base {
	case "index.html", "index.md", "index.markdown":
		return true
	}
	return false
}
