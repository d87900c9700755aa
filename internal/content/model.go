package content

import (
	"sort"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
)

// Kind classifies a renderable content unit.
type Kind string

const (
	KindPost     Kind = "post"
	KindPage     Kind = "page"
	KindDocument Kind = "document" // member of a configured collection
)

// PostsCollection is the collection name posts and drafts belong to.
const PostsCollection = "posts"

// Unit is one renderable source file.
//
// Units are filled in by successive build steps (conversion, URL resolution,
// rendering) and are treated as read-only once a Site has been assembled.
type Unit struct {
	SourcePath string // slash-separated, relative to the source root
	Kind       Kind
	Collection string // "posts" for posts and drafts, "" for pages
	Ext        string

	FrontMatter    frontmatter.Value
	RawFrontMatter []byte
	RawBody        []byte
	BodyHTML       []byte
	Excerpt        []byte

	Date    time.Time
	HasDate bool
	Draft   bool
	Slug    string
	Title   string
	Layout  string

	// Templated units have their body evaluated as a template before layouts apply.
	Templated bool

	// Output is false for members of collections configured with output: false.
	Output bool

	URL        string // site-relative URL, always starting with "/"
	OutputPath string // slash-separated file path relative to the destination
}

// Layout is a named template from _layouts/.
type Layout struct {
	Name        string // path under _layouts without extension
	SourcePath  string
	Source      string // template text with front matter removed
	FrontMatter frontmatter.Value
	Parent      string // optional parent layout name
}

// Include is a partial from _includes/, addressed by its relative path.
type Include struct {
	Name       string
	SourcePath string
	Source     string
}

// StaticFile is copied verbatim into the output.
type StaticFile struct {
	SourcePath string
	OutputPath string
	ModTime    time.Time
	Size       int64
}

// Site is the immutable aggregate for one build generation.
type Site struct {
	Config      *config.Config
	Time        time.Time
	Units       []*Unit
	Posts       []*Unit // newest first, ties broken by source path
	Pages       []*Unit
	Collections map[string][]*Unit
	Layouts     []Layout
	Includes    map[string]Include
	Data        frontmatter.Value
	Static      []StaticFile
}

// NewSite assembles a Site. Units are grouped by kind and posts are sorted
// newest first; the input slice is not modified.
func NewSite(cfg *config.Config, now time.Time, inv *Inventory, units []*Unit) *Site {
	s := &Site{
		Config:      cfg,
		Time:        now,
		Units:       append([]*Unit(nil), units...),
		Collections: map[string][]*Unit{},
		Data:        frontmatter.EmptyMap(),
		Includes:    map[string]Include{},
	}
	if inv != nil {
		s.Layouts = inv.Layouts
		s.Includes = inv.Includes
		s.Data = inv.Data
		s.Static = inv.Static
	}
	for _, u := range s.Units {
		switch u.Kind {
		case KindPost:
			s.Posts = append(s.Posts, u)
		case KindPage:
			s.Pages = append(s.Pages, u)
		case KindDocument:
			s.Collections[u.Collection] = append(s.Collections[u.Collection], u)
		}
	}
	SortPosts(s.Posts)
	sort.SliceStable(s.Pages, func(i, j int) bool { return s.Pages[i].SourcePath < s.Pages[j].SourcePath })
	for name := range s.Collections {
		docs := s.Collections[name]
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].SourcePath < docs[j].SourcePath })
	}
	sort.SliceStable(s.Units, func(i, j int) bool { return s.Units[i].SourcePath < s.Units[j].SourcePath })
	return s
}

// SortPosts orders posts by descending date, ties broken by source path.
func SortPosts(posts []*Unit) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.SourcePath < b.SourcePath
	})
}

// Rendered returns the units that produce output files.
func (s *Site) Rendered() []*Unit {
	out := make([]*Unit, 0, len(s.Units))
	for _, u := range s.Units {
		if u.Output {
			out = append(out, u)
		}
	}
	return out
}
