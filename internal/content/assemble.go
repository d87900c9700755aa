package content

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
)

// NoLayout disables layout wrapping when used as a layout name.
const NoLayout = "none"

// DefaultLayout wraps HTML-producing units that do not name a layout.
const DefaultLayout = "default"

// Skipped records sources left out of a build by publishing rules.
type Skipped struct {
	Drafts []string
	Future []string
}

// Total returns the number of skipped sources.
func (s Skipped) Total() int { return len(s.Drafts) + len(s.Future) }

// Assemble converts every discovered source into a Unit, applying
// configured front matter defaults and the draft and future-date rules.
// Conversion runs in discovery order; the first failure aborts.
func Assemble(ctx context.Context, cfg *config.Config, inv *Inventory, conv Converter, now time.Time) ([]*Unit, Skipped, error) {
	var (
		units   []*Unit
		skipped Skipped
	)
	fallback := ""
	if inv.hasLayout(DefaultLayout) {
		fallback = DefaultLayout
	}
	for i := range inv.Sources {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		src := &inv.Sources[i]
		doc, err := conv.Convert(src.Path, src.Raw)
		if err != nil {
			return nil, skipped, asContentError(src.Path, err)
		}
		u := newUnit(cfg, src, doc, fallback)

		if u.Draft && !cfg.Drafts {
			skipped.Drafts = append(skipped.Drafts, u.SourcePath)
			slog.Debug("Skipping draft", logfields.Path(u.SourcePath))
			continue
		}
		if u.Kind != KindPage && u.HasDate && u.Date.After(now) && !cfg.Future {
			skipped.Future = append(skipped.Future, u.SourcePath)
			slog.Debug("Skipping future-dated unit", logfields.Path(u.SourcePath), slog.Time("date", u.Date))
			continue
		}
		units = append(units, u)
	}
	return units, skipped, nil
}

func asContentError(p string, err error) error {
	var fmErr *FrontMatterError
	var convErr *ConversionError
	if errors.As(err, &fmErr) || errors.As(err, &convErr) {
		return err
	}
	return &ConversionError{Path: p, Err: err}
}

// newUnit builds the unit for src. fallback names the layout used when the
// merged front matter has no layout key; an explicit empty or "none" layout
// still opts out.
func newUnit(cfg *config.Config, src *Source, doc Document, fallback string) *Unit {
	meta := frontmatter.Merge(defaultsFor(cfg, src), doc.Meta)
	ext := strings.ToLower(path.Ext(src.Path))

	u := &Unit{
		SourcePath:     src.Path,
		Kind:           src.Kind,
		Collection:     src.Collection,
		Ext:            ext,
		FrontMatter:    meta,
		RawFrontMatter: doc.RawFrontMatter,
		RawBody:        doc.Body,
		BodyHTML:       doc.BodyHTML,
		Excerpt:        doc.Excerpt,
		Slug:           meta.StringOr("slug", src.Slug),
		Draft:          src.Draft || isUnpublished(meta),
		Output:         true,
	}

	if t, ok := timeField(meta, "date"); ok {
		u.Date, u.HasDate = t, true
	}
	switch {
	case u.HasDate:
	case src.HasFileDate:
		u.Date, u.HasDate = src.FileDate, true
	case src.Draft:
		u.Date, u.HasDate = src.ModTime, true
	}

	u.Title = meta.StringOr("title", "")
	if u.Title == "" && u.Kind != KindPage {
		u.Title = titleize(u.Slug)
	}
	if _, set := meta.Get("layout"); !set {
		if isContentExt(ext) {
			u.Layout = fallback
		}
	} else if layout := meta.StringOr("layout", ""); layout != NoLayout {
		u.Layout = layout
	}

	u.Templated = !markdown.IsMarkdown(ext)
	if v, ok := meta.Get("render_with_template"); ok {
		if b, ok := v.AsBool(); ok && !b {
			u.Templated = false
		}
	}

	if u.Kind == KindDocument {
		u.Output = cfg.Collections[u.Collection].Output
	}
	return u
}

// defaultsFor merges every configured defaults entry whose scope matches src,
// later entries winning.
func defaultsFor(cfg *config.Config, src *Source) frontmatter.Value {
	merged := frontmatter.EmptyMap()
	for _, d := range cfg.Defaults {
		if !scopeMatches(d.Scope, src) {
			continue
		}
		merged = frontmatter.Merge(merged, d.Values)
	}
	return merged
}

func scopeMatches(scope config.DefaultsScope, src *Source) bool {
	if p := strings.Trim(scope.Path, "/"); p != "" {
		if src.Path != p && !strings.HasPrefix(src.Path, p+"/") {
			return false
		}
	}
	switch scope.Type {
	case "":
		return true
	case "pages":
		return src.Kind == KindPage
	case "posts":
		return src.Kind == KindPost
	case "drafts":
		return src.Draft
	default:
		return src.Kind == KindDocument && src.Collection == scope.Type
	}
}

func isUnpublished(meta frontmatter.Value) bool {
	if v, ok := meta.Get("published"); ok {
		if b, ok := v.AsBool(); ok && !b {
			return true
		}
	}
	if v, ok := meta.Get("draft"); ok {
		if b, ok := v.AsBool(); ok && b {
			return true
		}
	}
	return false
}

func timeField(meta frontmatter.Value, key string) (time.Time, bool) {
	v, ok := meta.Get(key)
	if !ok {
		return time.Time{}, false
	}
	return v.AsTime()
}

// titleize turns a slug such as "hello-world" into "Hello World".
func titleize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
