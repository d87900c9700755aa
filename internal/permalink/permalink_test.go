package permalink

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/content"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
)

func fm(pairs ...string) frontmatter.Value {
	v := frontmatter.EmptyMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		v = v.With(pairs[i], frontmatter.String(pairs[i+1]))
	}
	return v
}

func post(src, slug string, date time.Time, meta frontmatter.Value) *content.Unit {
	return &content.Unit{
		SourcePath: src, Kind: content.KindPost, Collection: content.PostsCollection,
		Slug: slug, Date: date, HasDate: true, FrontMatter: meta, Output: true,
	}
}

func page(src string, meta frontmatter.Value) *content.Unit {
	return &content.Unit{SourcePath: src, Kind: content.KindPage, FrontMatter: meta, Output: true}
}

func TestURL_PostWithDefaultPattern(t *testing.T) {
	r := New(config.NewDefault("/site"))
	u := post("_posts/2024-01-15-hello.md", "hello", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), fm("title", "Hello"))

	require.NoError(t, r.Resolve([]*content.Unit{u}, nil))
	require.Equal(t, "/2024/01/15/hello/", u.URL)
	require.Equal(t, "2024/01/15/hello/index.html", u.OutputPath)
}

func TestURL_PriorityOrder(t *testing.T) {
	cfg := config.NewDefault("/site")
	cfg.Collections["recipes"] = config.CollectionConfig{Output: true, Permalink: "/food/:title/"}
	r := New(cfg)
	date := time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		unit *content.Unit
		want string
	}{
		{"front matter override", post("_posts/2023-07-04-x.md", "x", date, fm("permalink", "/custom/:year/")), "/custom/2023/"},
		{"built-in style", post("_posts/2023-07-04-x.md", "x", date, fm("permalink", "none")), "/x.html"},
		{"collection pattern", &content.Unit{
			SourcePath: "_recipes/Soup Day.md", Kind: content.KindDocument, Collection: "recipes",
			Slug: "Soup Day", FrontMatter: fm(), Output: true,
		}, "/food/soup-day/"},
		{"collection default", &content.Unit{
			SourcePath: "_notes/deep/one.md", Kind: content.KindDocument, Collection: "notes",
			Slug: "one", FrontMatter: fm(),
		}, "/notes/deep/one.html"},
		{"page mirrors path", page("docs/setup.md", fm()), "/docs/setup.html"},
		{"index page", page("docs/index.md", fm()), "/docs/"},
		{"root index", page("index.html", fm()), "/"},
		{"categories", post("_posts/2023-07-04-x.md", "x", date, fm("categories", "Go Tips", "permalink", "pretty")), "/go/tips/2023/07/04/x/"},
		{"pretty style categories empty", post("_posts/2023-07-04-x.md", "x", date, fm("permalink", "pretty")), "/2023/07/04/x/"},
		{"ordinal", post("_posts/2023-07-04-x.md", "x", date, fm("permalink", "ordinal")), "/2023/185/x.html"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.URL(tc.unit)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestURL_PercentEncodesSegments(t *testing.T) {
	r := New(config.NewDefault("/site"))

	got, err := r.URL(page("x.md", fm("permalink", "/café menu/")))
	require.NoError(t, err)
	require.Equal(t, "/caf%C3%A9%20menu/", got)
	require.Equal(t, "café menu/index.html", OutputPath(got))

	again, err := r.URL(page("y.md", fm("permalink", got)))
	require.NoError(t, err)
	require.Equal(t, got, again, "already-escaped permalinks are stable")
}

func TestURL_RejectsTraversal(t *testing.T) {
	_, err := New(config.NewDefault("/site")).URL(page("x.md", fm("permalink", "/a/../../etc/")))
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "x.md", invalid.Path)
}

func TestURL_RejectsEncodedSeparators(t *testing.T) {
	r := New(config.NewDefault("/site"))
	for _, link := range []string{"/..%2F..%2Fescaped/", "/a/%2E%2E/b/", "/dir%5C..%5Cout/"} {
		_, err := r.URL(page("x.md", fm("permalink", link)))
		var invalid *InvalidError
		require.True(t, errors.As(err, &invalid), link)
	}

	err := r.Resolve([]*content.Unit{page("x.md", fm("permalink", "/..%2F..%2Fescaped/"))}, nil)
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "x.md", invalid.Path)
}

func TestResolve_CollisionNamesEverySource(t *testing.T) {
	units := []*content.Unit{
		page("about.md", fm("permalink", "/about/")),
		page("about/index.md", fm()),
		page("contact.md", fm()),
	}
	err := New(config.NewDefault("/site")).Resolve(units, nil)

	var coll *CollisionError
	require.True(t, errors.As(err, &coll))
	require.Len(t, coll.Collisions, 1)
	require.Equal(t, "about/index.html", coll.Collisions[0].OutputPath)
	require.Equal(t, []string{"about.md", "about/index.md"}, coll.Sources())
	require.Equal(t, ferrors.CategoryURL, ferrors.GetCategory(err))
	require.Contains(t, err.Error(), "about.md")
	require.Contains(t, err.Error(), "about/index.md")
}

func TestResolve_StaticFilesTakePartInCollisions(t *testing.T) {
	units := []*content.Unit{page("style.md", fm("permalink", "/style.css"))}
	static := []content.StaticFile{{SourcePath: "style.css", OutputPath: "style.css"}}

	var coll *CollisionError
	require.True(t, errors.As(New(config.NewDefault("/site")).Resolve(units, static), &coll))
	require.Equal(t, []string{"style.md", "style.css"}, coll.Sources())
}

func TestResolve_NonOutputUnitsDoNotCollide(t *testing.T) {
	hidden := &content.Unit{SourcePath: "_notes/a.md", Kind: content.KindDocument, Collection: "notes",
		Slug: "a", FrontMatter: fm("permalink", "/a/")}
	units := []*content.Unit{hidden, page("a.md", fm("permalink", "/a/"))}

	require.NoError(t, New(config.NewDefault("/site")).Resolve(units, nil))
	require.Equal(t, "/a/", hidden.URL)
	require.Empty(t, hidden.OutputPath)
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, "index.html", OutputPath("/"))
	require.Equal(t, "a/b/index.html", OutputPath("/a/b/"))
	require.Equal(t, "feed.xml", OutputPath("/feed.xml"))
	require.Equal(t, "about.html", OutputPath("/about"))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "hello-world", Slugify("Hello, World!"))
	require.Equal(t, "creme-brulee", Slugify("Crème Brûlée"))
	require.Equal(t, "go-1-24", Slugify("  Go 1.24 "))
	require.Empty(t, Slugify("!!!"))
}
