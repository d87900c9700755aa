package render

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/content"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
	"git.home.luguber.info/inful/jellsite/internal/layout"
)

type fixture struct {
	cfg      *config.Config
	units    []*content.Unit
	layouts  []content.Layout
	includes map[string]string
}

func (f fixture) renderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	cfg := f.cfg
	if cfg == nil {
		cfg = config.NewDefault("/site")
	}
	inv := &content.Inventory{Layouts: f.layouts, Includes: map[string]content.Include{}, Data: frontmatter.EmptyMap()}
	for name, src := range f.includes {
		inv.Includes[name] = content.Include{Name: name, SourcePath: "_includes/" + name, Source: src}
	}
	reg, err := layout.NewRegistry(f.layouts)
	require.NoError(t, err)
	site := content.NewSite(cfg, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), inv, f.units)
	return New(site, reg, nil, opts...)
}

func lay(name, parent, src string) content.Layout {
	return content.Layout{Name: name, Parent: parent, Source: src, SourcePath: "_layouts/" + name + ".html", FrontMatter: frontmatter.EmptyMap()}
}

func unit(src, body, layoutName string) *content.Unit {
	return &content.Unit{
		SourcePath: src, Kind: content.KindPage, BodyHTML: []byte(body), Layout: layoutName,
		FrontMatter: frontmatter.EmptyMap(), Output: true, URL: "/" + src,
	}
}

func TestRender_ThreadsContentOutwardThroughChain(t *testing.T) {
	u := unit("p.md", "<p>body</p>", "c")
	r := fixture{
		units: []*content.Unit{u},
		layouts: []content.Layout{
			lay("a", "", "<html>A[{{ .content }}]</html>"),
			lay("b", "a", "B[{{ .content }}]"),
			lay("c", "b", "C[{{ .content }}]"),
		},
	}.renderer(t)

	out, err := r.Render(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, "<html>A[B[C[<p>body</p>]]]</html>", string(out))
}

func TestRender_NoLayoutPassesBodyThrough(t *testing.T) {
	u := unit("p.md", "<p>raw {{ not a template }}</p>", "")
	out, err := fixture{units: []*content.Unit{u}}.renderer(t).Render(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, "<p>raw {{ not a template }}</p>", string(out))
}

func TestRender_ScopeExposesSitePageAndLayout(t *testing.T) {
	cfg := config.NewDefault("/site")
	cfg.Title = "My Site"
	cfg.Raw = frontmatter.EmptyMap().With("paginate", frontmatter.Int(5))

	u := unit("about.md", "x", "base")
	u.Title = "About"
	u.FrontMatter = frontmatter.EmptyMap().With("author", frontmatter.String("jell"))
	base := lay("base", "", `{{ .site.title }}|{{ .site.paginate }}|{{ .page.title }}|{{ .page.author }}|{{ .layout.kind }}|{{ .page.missing }}|{{ .page.missing.deeper }}|{{ if .page.nope }}yes{{ else }}no{{ end }}`)
	base.FrontMatter = frontmatter.EmptyMap().With("kind", frontmatter.String("wide"))

	out, err := fixture{cfg: cfg, units: []*content.Unit{u}, layouts: []content.Layout{base}}.renderer(t).Render(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, "My Site|5|About|jell|wide|||no", string(out))
}

func TestRender_PostsNewestFirstInSiteScope(t *testing.T) {
	older := &content.Unit{SourcePath: "_posts/a.md", Kind: content.KindPost, Title: "Old", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), HasDate: true, FrontMatter: frontmatter.EmptyMap(), Output: true}
	newer := &content.Unit{SourcePath: "_posts/b.md", Kind: content.KindPost, Title: "New", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), HasDate: true, FrontMatter: frontmatter.EmptyMap(), Output: true}
	index := unit("index.html", `{{ range .site.posts }}{{ .title }};{{ end }}`, "")
	index.Templated = true

	r := fixture{units: []*content.Unit{older, newer, index}}.renderer(t)
	out, err := r.Render(t.Context(), index)
	require.NoError(t, err)
	require.Equal(t, "New;Old;", string(out))
}

func TestRender_IncludesWithParameters(t *testing.T) {
	u := unit("p.html", `{{ include "card.html" (dict "title" "Hi") }}`, "base")
	u.Templated = true
	r := fixture{
		units:    []*content.Unit{u},
		layouts:  []content.Layout{lay("base", "", `{{ include "nav/top.html" }}{{ .content }}`)},
		includes: map[string]string{"card.html": `<b>{{ .include.title }}</b>`, "nav/top.html": `<nav>{{ .page.path }}</nav>`},
	}.renderer(t)

	out, err := r.Render(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, "<nav>p.html</nav><b>Hi</b>", string(out))
}

func TestRender_RecursiveIncludeHitsDepthLimit(t *testing.T) {
	u := unit("p.html", `{{ include "loop.html" }}`, "")
	u.Templated = true
	r := fixture{
		units:    []*content.Unit{u},
		includes: map[string]string{"loop.html": `x{{ include "loop.html" }}`},
	}.renderer(t, WithMaxIncludeDepth(4))

	done := make(chan error, 1)
	go func() {
		_, err := r.Render(t.Context(), u)
		done <- err
	}()

	select {
	case err := <-done:
		var limit *RecursionLimitError
		require.True(t, errors.As(err, &limit))
		require.Equal(t, 4, limit.Limit)
		require.Len(t, limit.Stack, 4)

		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		require.Equal(t, BodyPosition, rerr.Position)
		require.Equal(t, ferrors.CategoryRender, ferrors.GetCategory(err))
	case <-time.After(5 * time.Second):
		t.Fatal("recursive include did not terminate")
	}
}

func TestRender_MissingInclude(t *testing.T) {
	u := unit("p.html", `{{ include "nope.html" }}`, "")
	u.Templated = true
	_, err := fixture{units: []*content.Unit{u}}.renderer(t).Render(t.Context(), u)
	var nf *IncludeNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "nope.html", nf.Name)
}

func TestRender_MissingLayoutIsRenderError(t *testing.T) {
	u := unit("about.md", "x", "ghost")
	_, err := fixture{units: []*content.Unit{u}}.renderer(t).Render(t.Context(), u)

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "about.md", rerr.Source)
	require.Equal(t, "ghost", rerr.Layout)
	require.Equal(t, 0, rerr.Position)

	var nf *layout.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestRender_SyntaxErrorReportsChainPosition(t *testing.T) {
	u := unit("post.md", "x", "post")
	r := fixture{
		units: []*content.Unit{u},
		layouts: []content.Layout{
			lay("default", "", "<main>{{ .content </main>"),
			lay("post", "default", "<article>{{ .content }}</article>"),
		},
	}.renderer(t)

	_, err := r.Render(t.Context(), u)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "post.md", rerr.Source)
	require.Equal(t, "default", rerr.Layout)
	require.Equal(t, 1, rerr.Position)
	require.Equal(t, []string{"post", "default"}, rerr.Chain)
	require.Contains(t, err.Error(), "chain position 1")
}

func TestRender_BodySyntaxError(t *testing.T) {
	u := unit("p.html", "{{ if }}", "")
	u.Templated = true
	_, err := fixture{units: []*content.Unit{u}}.renderer(t).Render(t.Context(), u)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, BodyPosition, rerr.Position)
}

func TestRender_ParallelRendersAreIndependent(t *testing.T) {
	var units []*content.Unit
	for i := 0; i < 32; i++ {
		u := unit("p"+strings.Repeat("x", i)+".html", `{{ include "inc.html" }}`, "base")
		u.Templated = true
		units = append(units, u)
	}
	r := fixture{
		units:    units,
		layouts:  []content.Layout{lay("base", "", "[{{ .content }}]")},
		includes: map[string]string{"inc.html": "{{ .page.path }}"},
	}.renderer(t)

	var wg sync.WaitGroup
	results := make([]string, len(units))
	errs := make([]error, len(units))
	for i, u := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Render(t.Context(), u)
			results[i], errs[i] = string(out), err
		}()
	}
	wg.Wait()
	for i, u := range units {
		require.NoError(t, errs[i])
		require.Equal(t, "["+u.SourcePath+"]", results[i])
	}
}

func TestRender_IdempotentOutput(t *testing.T) {
	u := unit("p.html", `{{ .page.title }}{{ range .site.pages }}{{ .path }}{{ end }}`, "")
	u.Templated = true
	r := fixture{units: []*content.Unit{u, unit("q.md", "", "")}}.renderer(t)

	first, err := r.Render(t.Context(), u)
	require.NoError(t, err)
	second, err := r.Render(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
