package content

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

func assemble(t *testing.T, cfg *config.Config, files map[string]string) ([]*Unit, Skipped, error) {
	t.Helper()
	inv, err := discover(t, cfg, files)
	require.NoError(t, err)
	return Assemble(t.Context(), cfg, inv, NewMarkdownConverter(nil), fixedNow)
}

func unitByPath(t *testing.T, units []*Unit, p string) *Unit {
	t.Helper()
	for _, u := range units {
		if u.SourcePath == p {
			return u
		}
	}
	t.Fatalf("unit %s not found", p)
	return nil
}

func TestAssemble_PostFieldsFromFilenameAndFrontMatter(t *testing.T) {
	units, _, err := assemble(t, config.NewDefault(siteRoot), map[string]string{
		"_posts/2024-01-15-hello-world.md": "---\nlayout: post\n---\nFirst *para*.\n\nSecond.\n",
		"_posts/2024-02-01-dated.md":       "---\ntitle: Dated\ndate: 2024-02-03 10:30:00\n---\nx\n",
		"_posts/2024-03-01-custom-slug.md": "---\nslug: other\n---\nx\n",
	})
	require.NoError(t, err)
	require.Len(t, units, 3)

	hello := unitByPath(t, units, "_posts/2024-01-15-hello-world.md")
	require.Equal(t, "Hello World", hello.Title)
	require.Equal(t, "hello-world", hello.Slug)
	require.Equal(t, "post", hello.Layout)
	require.True(t, hello.HasDate)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local), hello.Date)
	require.Equal(t, "<p>First <em>para</em>.</p>", string(hello.Excerpt))
	require.False(t, hello.Templated)

	dated := unitByPath(t, units, "_posts/2024-02-01-dated.md")
	require.Equal(t, "Dated", dated.Title)
	require.Equal(t, 3, dated.Date.Day())
	require.Equal(t, 10, dated.Date.Hour())

	require.Equal(t, "other", unitByPath(t, units, "_posts/2024-03-01-custom-slug.md").Slug)
}

func TestAssemble_FutureInclusionFollowsFlag(t *testing.T) {
	files := map[string]string{
		"_posts/2024-01-01-past.md":   "x",
		"_posts/2030-01-01-future.md": "x",
	}

	units, skipped, err := assemble(t, config.NewDefault(siteRoot), files)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, []string{"_posts/2030-01-01-future.md"}, skipped.Future)

	cfg := config.NewDefault(siteRoot)
	cfg.Future = true
	units, skipped, err = assemble(t, cfg, files)
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Zero(t, skipped.Total())
}

func TestAssemble_DraftsExcludedUnlessEnabled(t *testing.T) {
	files := map[string]string{
		"_drafts/idea.md":             "x",
		"_posts/2024-01-01-hidden.md": "---\npublished: false\n---\nx",
		"page.md":                     "---\ndraft: true\n---\nx",
		"live.md":                     "x",
	}

	units, skipped, err := assemble(t, config.NewDefault(siteRoot), files)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "live.md", units[0].SourcePath)
	require.Len(t, skipped.Drafts, 3)

	cfg := config.NewDefault(siteRoot)
	cfg.Drafts = true
	cfg.Future = true // draft dates come from the file's modification time
	units, _, err = assemble(t, cfg, files)
	require.NoError(t, err)
	require.Len(t, units, 4)
	idea := unitByPath(t, units, "_drafts/idea.md")
	require.True(t, idea.Draft)
	require.True(t, idea.HasDate, "drafts fall back to modification time")
}

func TestAssemble_MergesScopedDefaults(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Defaults = []config.DefaultsEntry{
		{Values: frontmatter.Map(frontmatter.Pair{Key: "layout", Value: frontmatter.String("default")})},
		{
			Scope:  config.DefaultsScope{Type: "posts"},
			Values: frontmatter.Map(frontmatter.Pair{Key: "layout", Value: frontmatter.String("post")}),
		},
		{
			Scope:  config.DefaultsScope{Path: "docs"},
			Values: frontmatter.Map(frontmatter.Pair{Key: "section", Value: frontmatter.String("docs")}),
		},
	}

	units, _, err := assemble(t, cfg, map[string]string{
		"_posts/2024-01-01-a.md": "x",
		"about.md":               "x",
		"docs/intro.md":          "---\nlayout: doc\n---\nx",
		"bare.md":                "---\nlayout: none\n---\nx",
	})
	require.NoError(t, err)

	require.Equal(t, "post", unitByPath(t, units, "_posts/2024-01-01-a.md").Layout)
	require.Equal(t, "default", unitByPath(t, units, "about.md").Layout)
	intro := unitByPath(t, units, "docs/intro.md")
	require.Equal(t, "doc", intro.Layout)
	require.Equal(t, "docs", intro.FrontMatter.StringOr("section", ""))
	require.Empty(t, unitByPath(t, units, "bare.md").Layout)
}

func TestAssemble_DefaultLayoutWhenUnset(t *testing.T) {
	files := map[string]string{
		"_layouts/default.html":      "<html>{{ .content }}</html>",
		"about.md":                   "about",
		"_posts/2024-01-15-hello.md": "hi",
		"bare.md":                    "---\nlayout: none\n---\nx",
		"empty.md":                   "---\nlayout: \"\"\n---\nx",
		"named.md":                   "---\nlayout: post\n---\nx",
		"feed.xml":                   "---\n---\n<feed/>",
	}
	units, _, err := assemble(t, config.NewDefault(siteRoot), files)
	require.NoError(t, err)

	require.Equal(t, DefaultLayout, unitByPath(t, units, "about.md").Layout)
	require.Equal(t, DefaultLayout, unitByPath(t, units, "_posts/2024-01-15-hello.md").Layout)
	require.Empty(t, unitByPath(t, units, "bare.md").Layout)
	require.Empty(t, unitByPath(t, units, "empty.md").Layout)
	require.Equal(t, "post", unitByPath(t, units, "named.md").Layout)
	require.Empty(t, unitByPath(t, units, "feed.xml").Layout)

	delete(files, "_layouts/default.html")
	units, _, err = assemble(t, config.NewDefault(siteRoot), files)
	require.NoError(t, err)
	require.Empty(t, unitByPath(t, units, "about.md").Layout)
}

func TestAssemble_CollectionOutputFlagAndTemplating(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	cfg.Collections["notes"] = config.CollectionConfig{Output: false}
	cfg.Collections["recipes"] = config.CollectionConfig{Output: true}

	units, _, err := assemble(t, cfg, map[string]string{
		"_notes/n.md":   "x",
		"_recipes/r.md": "x",
		"feed.html":     "---\n---\n{{ .site.title }}",
		"raw.html":      "---\nrender_with_template: false\n---\n{{ literal }}",
	})
	require.NoError(t, err)

	require.False(t, unitByPath(t, units, "_notes/n.md").Output)
	require.True(t, unitByPath(t, units, "_recipes/r.md").Output)
	require.True(t, unitByPath(t, units, "feed.html").Templated)
	require.False(t, unitByPath(t, units, "raw.html").Templated)
}

func TestAssemble_FrontMatterErrorCarriesPath(t *testing.T) {
	_, _, err := assemble(t, config.NewDefault(siteRoot), map[string]string{
		"about.md": "---\ntitle: [unclosed\n---\nbody",
	})
	var fmErr *FrontMatterError
	require.True(t, errors.As(err, &fmErr))
	require.Equal(t, "about.md", fmErr.Path)
}

func TestAssemble_WrapsForeignConverterErrors(t *testing.T) {
	cfg := config.NewDefault(siteRoot)
	inv, err := discover(t, cfg, map[string]string{"a.md": "x"})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = Assemble(t.Context(), cfg, inv, ConverterFunc(func(string, []byte) (Document, error) {
		return Document{}, boom
	}), fixedNow)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	require.Equal(t, "a.md", convErr.Path)
	require.ErrorIs(t, err, boom)
}

func TestNewSite_OrdersPostsNewestFirst(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	units := []*Unit{
		{SourcePath: "_posts/b.md", Kind: KindPost, Date: d},
		{SourcePath: "_posts/a.md", Kind: KindPost, Date: d},
		{SourcePath: "_posts/new.md", Kind: KindPost, Date: d.AddDate(0, 1, 0)},
		{SourcePath: "z.md", Kind: KindPage},
		{SourcePath: "_recipes/r.md", Kind: KindDocument, Collection: "recipes"},
	}
	site := NewSite(config.NewDefault(siteRoot), fixedNow, nil, units)

	var order []string
	for _, p := range site.Posts {
		order = append(order, p.SourcePath)
	}
	require.Equal(t, []string{"_posts/new.md", "_posts/a.md", "_posts/b.md"}, order)
	require.Len(t, site.Pages, 1)
	require.Len(t, site.Collections["recipes"], 1)
	require.Equal(t, "_posts/b.md", units[0].SourcePath, "input slice is not reordered")
}
