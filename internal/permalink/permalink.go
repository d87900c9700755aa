// Package permalink computes output URLs and file paths for content units.
//
// A unit's URL comes from, in order: a permalink field in its front matter,
// the pattern configured for its collection (or the site-wide pattern for
// posts), or a default mirroring the source path. Patterns may contain
// tokens such as :year, :month, :day, :title, :collection and :path.
package permalink

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/content"
)

// DefaultCollectionPattern is used for collection documents without a configured pattern.
const DefaultCollectionPattern = "/:collection/:path:output_ext"

const outputExt = ".html"

var token = regexp.MustCompile(`:([a-z_]+)`)

// Resolver assigns URLs and output paths.
type Resolver struct {
	cfg *config.Config
}

// New returns a Resolver for cfg.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve sets URL and OutputPath on every unit and checks that no two
// outputs, rendered or static, land on the same file. Units of collections
// without output receive a URL but no output path.
func (r *Resolver) Resolve(units []*content.Unit, static []content.StaticFile) error {
	owners := map[string][]string{}
	var order []string
	claim := func(out, src string) {
		if _, seen := owners[out]; !seen {
			order = append(order, out)
		}
		owners[out] = append(owners[out], src)
	}

	for _, u := range units {
		link, err := r.URL(u)
		if err != nil {
			return err
		}
		u.URL = link
		u.OutputPath = ""
		if !u.Output {
			continue
		}
		u.OutputPath = OutputPath(link)
		claim(u.OutputPath, u.SourcePath)
	}
	for _, s := range static {
		claim(s.OutputPath, s.SourcePath)
	}

	var collisions []Collision
	for _, out := range order {
		if srcs := owners[out]; len(srcs) > 1 {
			collisions = append(collisions, Collision{OutputPath: out, Sources: srcs})
		}
	}
	if len(collisions) > 0 {
		return &CollisionError{Collisions: collisions}
	}
	return nil
}

// URL computes the site-relative URL of one unit.
func (r *Resolver) URL(u *content.Unit) (string, error) {
	pattern := r.pattern(u)
	link := normalize(expand(pattern, u))
	if err := checkSegments(link); err != nil {
		return "", &InvalidError{Path: u.SourcePath, Permalink: pattern, Reason: err.Error()}
	}
	return link, nil
}

func (r *Resolver) pattern(u *content.Unit) string {
	if p := u.FrontMatter.StringOr("permalink", ""); p != "" {
		return config.PermalinkPattern(p)
	}
	switch u.Kind {
	case content.KindPost:
		if c, ok := r.cfg.Collections[content.PostsCollection]; ok && c.Permalink != "" {
			return config.PermalinkPattern(c.Permalink)
		}
		return config.PermalinkPattern(r.cfg.Permalink)
	case content.KindDocument:
		if c := r.cfg.Collections[u.Collection]; c.Permalink != "" {
			return config.PermalinkPattern(c.Permalink)
		}
		return DefaultCollectionPattern
	default:
		return pagePattern(u.SourcePath)
	}
}

// pagePattern mirrors the source path, mapping the extension to .html and
// index files to their directory.
func pagePattern(src string) string {
	dir, file := path.Split(src)
	name := strings.TrimSuffix(file, path.Ext(file))
	if name == "index" {
		return "/" + dir
	}
	return "/" + dir + name + outputExt
}

func expand(pattern string, u *content.Unit) string {
	return token.ReplaceAllStringFunc(pattern, func(tok string) string {
		v, ok := tokenValue(tok[1:], u)
		if !ok {
			return tok
		}
		return v
	})
}

func tokenValue(name string, u *content.Unit) (string, bool) {
	d := u.Date
	switch name {
	case "year":
		return fmt.Sprintf("%04d", d.Year()), true
	case "short_year":
		return fmt.Sprintf("%02d", d.Year()%100), true
	case "month":
		return fmt.Sprintf("%02d", int(d.Month())), true
	case "i_month":
		return fmt.Sprint(int(d.Month())), true
	case "day":
		return fmt.Sprintf("%02d", d.Day()), true
	case "i_day":
		return fmt.Sprint(d.Day()), true
	case "y_day":
		return fmt.Sprintf("%03d", d.YearDay()), true
	case "hour":
		return fmt.Sprintf("%02d", d.Hour()), true
	case "minute":
		return fmt.Sprintf("%02d", d.Minute()), true
	case "second":
		return fmt.Sprintf("%02d", d.Second()), true
	case "title", "slug":
		return Slugify(u.Slug), true
	case "name":
		base := path.Base(u.SourcePath)
		return Slugify(strings.TrimSuffix(base, path.Ext(base))), true
	case "collection":
		return u.Collection, true
	case "path":
		return relativePath(u), true
	case "categories":
		cats := u.FrontMatter.Strings("categories")
		if len(cats) == 0 {
			cats = u.FrontMatter.Strings("category")
		}
		for i, c := range cats {
			cats[i] = Slugify(c)
		}
		return strings.Join(cats, "/"), true
	case "output_ext":
		return outputExt, true
	default:
		return "", false
	}
}

// relativePath is the source path below the unit's own directory, without extension.
func relativePath(u *content.Unit) string {
	p := u.SourcePath
	switch u.Kind {
	case content.KindDocument:
		p = strings.TrimPrefix(p, "_"+u.Collection+"/")
	case content.KindPost:
		p = strings.TrimPrefix(strings.TrimPrefix(p, content.DirPosts+"/"), content.DirDrafts+"/")
	}
	return strings.TrimSuffix(p, path.Ext(p))
}

// normalize collapses empty segments, ensures a leading slash and
// percent-encodes every segment. Already-escaped input is not escaped twice.
func normalize(link string) string {
	trailing := strings.HasSuffix(link, "/")
	var segs []string
	for _, s := range strings.Split(link, "/") {
		if s == "" {
			continue
		}
		if raw, err := url.PathUnescape(s); err == nil {
			s = raw
		}
		segs = append(segs, url.PathEscape(s))
	}
	if len(segs) == 0 {
		return "/"
	}
	out := "/" + strings.Join(segs, "/")
	if trailing {
		out += "/"
	}
	return out
}

// checkSegments rejects segments that would leave the destination once
// decoded: dot segments and escaped path separators.
func checkSegments(link string) error {
	for _, s := range strings.Split(link, "/") {
		raw, err := url.PathUnescape(s)
		if err != nil {
			return fmt.Errorf("segment %q is not valid percent-encoding", s)
		}
		if raw == ".." || raw == "." {
			return fmt.Errorf("segment %q is not allowed", s)
		}
		if strings.ContainsAny(raw, `/\`) {
			return fmt.Errorf("segment %q encodes a path separator", s)
		}
	}
	return nil
}

// OutputPath maps a URL to a slash-separated file path below the destination.
// Directory URLs become <dir>/index.html and extensionless URLs gain .html.
func OutputPath(link string) string {
	segs := strings.Split(strings.TrimPrefix(link, "/"), "/")
	for i, s := range segs {
		if raw, err := url.PathUnescape(s); err == nil {
			segs[i] = raw
		}
	}
	p := strings.Join(segs, "/")
	switch {
	case p == "" || strings.HasSuffix(p, "/"):
		return p + "index.html"
	case path.Ext(p) == "":
		return p + outputExt
	default:
		return p
	}
}
