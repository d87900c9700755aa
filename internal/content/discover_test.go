package content

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jellsite/internal/config"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

const siteRoot = "/site"

func newTestFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, name), []byte(body), 0o644))
	}
	return fs
}

func discover(t *testing.T, cfg *config.Config, files map[string]string) (*Inventory, error) {
	t.Helper()
	return NewDiscoverer(newTestFS(t, files), cfg).Discover(t.Context())
}

func sourcePaths(inv *Inventory) []string {
	out := make([]string, 0, len(inv.Sources))
	for _, s := range inv.Sources {
		out = append(out, s.Path)
	}
	return out
}

func TestDiscover_ClassifiesTree(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Collections["recipes"] = config.CollectionConfig{Output: true}

	inv, err := discover(t, cfg, map[string]string{
		"_posts/2024-01-15-hello.md": "---\ntitle: Hello\n---\nhi\n",
		"_drafts/wip.md":             "draft body",
		"_layouts/default.html":      "<html>{{ .content }}</html>",
		"_layouts/post.html":         "---\nlayout: default\n---\n<article>{{ .content }}</article>",
		"_includes/nav/menu.html":    "<nav></nav>",
		"_data/authors.yml":          "jell: {name: Jell}\n",
		"_data/team/members.json":    `["a", "b"]`,
		"_recipes/soup.md":           "soup",
		"_recipes/soup.jpg":          "binary",
		"_config.yml":                "title: x\n",
		"_site/old.html":             "stale",
		".hidden":                    "x",
		"about.md":                   "about",
		"plain.html":                 "<p>no front matter</p>",
		"contact.html":               "---\ntitle: Contact\n---\n<p>hi</p>",
		"css/site.css":               "body{}",
		"node_modules/pkg/index.js":  "x",
		"notes.md~":                  "backup",
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"_drafts/wip.md",
		"_posts/2024-01-15-hello.md",
		"_recipes/soup.md",
		"about.md",
		"contact.html",
	}, sourcePaths(inv))

	post := inv.Sources[1]
	require.Equal(t, KindPost, post.Kind)
	require.Equal(t, "hello", post.Slug)
	require.True(t, post.HasFileDate)
	require.Equal(t, 2024, post.FileDate.Year())
	require.Equal(t, 15, post.FileDate.Day())

	require.True(t, inv.Sources[0].Draft)
	require.Equal(t, KindDocument, inv.Sources[2].Kind)
	require.Equal(t, "recipes", inv.Sources[2].Collection)
	require.Equal(t, KindPage, inv.Sources[3].Kind)

	require.Len(t, inv.Layouts, 2)
	require.Equal(t, "post", inv.Layouts[1].Name)
	require.Equal(t, "default", inv.Layouts[1].Parent)
	require.Equal(t, "<article>{{ .content }}</article>", inv.Layouts[1].Source)

	require.Contains(t, inv.Includes, "nav/menu.html")

	name, ok := inv.Data.Lookup("authors.jell.name")
	require.True(t, ok)
	require.Equal(t, "Jell", name.Text())
	member, ok := inv.Data.Lookup("team.members.1")
	require.True(t, ok)
	require.Equal(t, "b", member.Text())

	var static []string
	for _, s := range inv.Static {
		static = append(static, s.SourcePath+"=>"+s.OutputPath)
	}
	require.Equal(t, []string{
		"_recipes/soup.jpg=>recipes/soup.jpg",
		"css/site.css=>css/site.css",
		"plain.html=>plain.html",
	}, static)
}

func TestDiscover_IncludeOverridesExclude(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Exclude = []string{"drafts-notes", "*.log"}
	cfg.Include = []string{".well-known", "debug.log"}

	inv, err := discover(t, cfg, map[string]string{
		"drafts-notes/a.md":        "a",
		"trace.log":                "x",
		"debug.log":                "x",
		".well-known/security.txt": "contact",
		"index.md":                 "home",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"index.md"}, sourcePaths(inv))

	var static []string
	for _, s := range inv.Static {
		static = append(static, s.OutputPath)
	}
	require.ElementsMatch(t, []string{".well-known/security.txt", "debug.log"}, static)
}

func TestDiscover_CollectionWithoutOutputHasNoStatic(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Collections["notes"] = config.CollectionConfig{Output: false}

	inv, err := discover(t, cfg, map[string]string{
		"_notes/one.md":  "one",
		"_notes/pic.png": "png",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"_notes/one.md"}, sourcePaths(inv))
	require.Empty(t, inv.Static)
}

func TestDiscover_UnconfiguredUnderscoreDirIsSkipped(t *testing.T) {
	inv, err := discover(t, config.NewDefault(siteRoot), map[string]string{
		"_private/secret.md": "x",
	})
	require.NoError(t, err)
	require.Empty(t, inv.Sources)
	require.Empty(t, inv.Static)
}

func TestDiscover_RejectsBadPostNames(t *testing.T) {
	cases := map[string]string{
		"missing date":  "_posts/hello.md",
		"invalid month": "_posts/2024-13-01-hello.md",
		"invalid day":   "_posts/2023-02-29-leap.md",
		"no slug":       "_posts/2024-01-01.md",
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := discover(t, config.NewDefault(siteRoot), map[string]string{file: "x"})
			require.Error(t, err)

			var derr *DiscoveryError
			require.True(t, errors.As(err, &derr))
			require.Equal(t, file, derr.Path)
			require.Equal(t, ferrors.CategoryDiscovery, ferrors.GetCategory(err))
		})
	}
}

func TestDiscover_MalformedLayoutFrontMatter(t *testing.T) {
	_, err := discover(t, config.NewDefault(siteRoot), map[string]string{
		"_layouts/broken.html": "---\nlayout: [\n---\nx",
	})
	var fmErr *FrontMatterError
	require.True(t, errors.As(err, &fmErr))
	require.Equal(t, "_layouts/broken.html", fmErr.Path)
}

func TestDiscover_MalformedDataFile(t *testing.T) {
	_, err := discover(t, config.NewDefault(siteRoot), map[string]string{
		"_data/bad.yml": "a: [1, 2\n",
	})
	var derr *DiscoveryError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, "_data/bad.yml", derr.Path)
}

func TestDiscover_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	fs := newTestFS(t, map[string]string{"index.md": "x"})
	_, err := NewDiscoverer(fs, config.NewDefault(siteRoot)).Discover(ctx)
	require.Error(t, err)
}

func TestMatchAny(t *testing.T) {
	require.True(t, matchAny("vendor/x/y.go", []string{"vendor"}))
	require.True(t, matchAny("a/b/c.log", []string{"*.log"}))
	require.True(t, matchAny("docs/a.md", []string{"/docs/"}))
	require.False(t, matchAny("vendored/x", []string{"vendor"}))
	require.False(t, matchAny("x", []string{""}))
	require.True(t, matchAny("a/b/c.tmp", []string{"**/*.tmp"}))
	require.True(t, matchAny("assets/img/cache", []string{"assets/**/cache"}))
	require.False(t, matchAny("assets/img/cached", []string{"assets/**/cache"}))
}

func TestDiscover_ExcludeSupportsDoubleStar(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Exclude = []string{"**/*.tmp", "assets/**/cache"}

	inv, err := discover(t, cfg, map[string]string{
		"notes/deep/scratch.tmp": "x",
		"top.tmp":                "x",
		"assets/img/cache/a.png": "x",
		"assets/img/logo.png":    "x",
		"notes/deep/page.md":     "page",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"notes/deep/page.md"}, sourcePaths(inv))

	var static []string
	for _, s := range inv.Static {
		static = append(static, s.OutputPath)
	}
	require.Equal(t, []string{"assets/img/logo.png"}, static)
}
