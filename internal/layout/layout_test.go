package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jellsite/internal/content"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

func l(name, parent string) content.Layout {
	return content.Layout{Name: name, Parent: parent, SourcePath: "_layouts/" + name + ".html"}
}

func names(ls []content.Layout) []string {
	out := make([]string, len(ls))
	for i, x := range ls {
		out[i] = x.Name
	}
	return out
}

func TestChain_InnermostFirst(t *testing.T) {
	reg, err := NewRegistry([]content.Layout{l("a", ""), l("c", "b"), l("b", "a")})
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	chain, err := reg.Chain("c", "post.md")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, names(chain))

	chain, err = reg.Chain("a", "post.md")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, names(chain))
}

func TestNewRegistry_DetectsCycles(t *testing.T) {
	cases := map[string]struct {
		layouts []content.Layout
		want    []string
	}{
		"two":  {[]content.Layout{l("a", "b"), l("b", "a")}, []string{"a", "b", "a"}},
		"self": {[]content.Layout{l("a", "a")}, []string{"a", "a"}},
		"tail": {[]content.Layout{l("a", "b"), l("b", "c"), l("c", "b")}, []string{"b", "c", "b"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(tc.layouts)
			var cyc *CycleError
			require.True(t, errors.As(err, &cyc))
			require.Equal(t, tc.want, cyc.Chain)
			require.Equal(t, ferrors.CategoryLayout, ferrors.GetCategory(err))
		})
	}
}

func TestNewRegistry_MissingParent(t *testing.T) {
	_, err := NewRegistry([]content.Layout{l("post", "base")})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "base", nf.Name)
	require.Equal(t, "_layouts/post.html", nf.Referrer)
}

func TestChain_UnknownLayout(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = reg.Chain("missing", "about.md")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Contains(t, err.Error(), "about.md")
}

func TestLookup(t *testing.T) {
	reg, err := NewRegistry([]content.Layout{l("docs/page", "")})
	require.NoError(t, err)
	got, ok := reg.Lookup("docs/page")
	require.True(t, ok)
	require.Equal(t, "_layouts/docs/page.html", got.SourcePath)
	_, ok = reg.Lookup("nope")
	require.False(t, ok)
}
