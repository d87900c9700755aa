// Package render evaluates unit bodies and layout chains with html/template.
//
// Layouts and includes are parsed once per Renderer. Each Render call works
// on a clone of that set so the include depth counter belongs to a single
// unit; renders of different units share nothing mutable and may run in
// parallel.
package render

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/content"
	"git.home.luguber.info/inful/jellsite/internal/layout"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
)

const (
	layoutPrefix  = "layout:"
	includePrefix = "include:"
	bodyPrefix    = "body:"
)

// Renderer renders units of one Site.
type Renderer struct {
	site     *content.Site
	layouts  *layout.Registry
	maxDepth int

	base     *template.Template
	broken   map[string]error // template name -> parse error, reported when used
	siteData map[string]any
	pages    map[*content.Unit]map[string]any
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxIncludeDepth bounds include nesting. Values below 1 keep the configured default.
func WithMaxIncludeDepth(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// New parses every layout and include of site. Template syntax errors do not
// fail here; they are reported by Render for the units that use the broken
// template, together with the unit path and chain position.
func New(site *content.Site, reg *layout.Registry, md *markdown.Renderer, opts ...Option) *Renderer {
	if md == nil {
		md = markdown.New()
	}
	r := &Renderer{
		site:     site,
		layouts:  reg,
		maxDepth: site.Config.Build.MaxIncludeDepth,
		broken:   map[string]error{},
		pages:    make(map[*content.Unit]map[string]any, len(site.Units)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDepth < 1 {
		r.maxDepth = 1
	}

	r.base = template.New("site").Funcs(baseFuncs(site.Config, md))
	for _, l := range reg.Layouts() {
		r.parse(layoutPrefix+l.Name, l.Source)
	}
	for name, inc := range site.Includes {
		r.parse(includePrefix+name, inc.Source)
	}

	for _, u := range site.Units {
		r.pages[u] = pageScope(u)
	}
	r.siteData = siteScope(site, r.pages)
	return r
}

func (r *Renderer) parse(name, src string) {
	if _, err := r.base.New(name).Parse(src); err != nil {
		r.broken[name] = err
		slog.Debug("Template failed to parse", slog.String("template", name), logfields.Error(err))
	}
}

// Render produces the final HTML of u: the body, evaluated as a template when
// u is templated, threaded outward through u's layout chain.
func (r *Renderer) Render(ctx context.Context, u *content.Unit) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chain []content.Layout
	var names []string
	if u.Layout != "" {
		var err error
		chain, err = r.layouts.Chain(u.Layout, u.SourcePath)
		if err != nil {
			return nil, &Error{Source: u.SourcePath, Layout: u.Layout, Position: 0, Chain: []string{u.Layout}, Err: err}
		}
		names = make([]string, len(chain))
		for i, l := range chain {
			names[i] = l.Name
		}
	}

	tmpl, err := r.base.Clone()
	if err != nil {
		return nil, &Error{Source: u.SourcePath, Position: BodyPosition, Err: err}
	}
	st := &state{r: r, tmpl: tmpl}
	tmpl.Funcs(template.FuncMap{"include": st.include})

	page := r.pages[u]
	if page == nil {
		page = pageScope(u)
	}

	out := template.HTML(u.BodyHTML)
	if u.Templated {
		name := bodyPrefix + u.SourcePath
		if _, err := tmpl.New(name).Parse(string(u.BodyHTML)); err != nil {
			return nil, &Error{Source: u.SourcePath, Position: BodyPosition, Err: err}
		}
		st.scope = stageScope(r.siteData, page, map[string]any{}, "")
		rendered, err := st.execute(name)
		if err != nil {
			return nil, &Error{Source: u.SourcePath, Position: BodyPosition, Err: err}
		}
		out = rendered
	}

	for pos, l := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := layoutPrefix + l.Name
		fail := func(err error) error {
			return &Error{Source: u.SourcePath, Layout: l.Name, Position: pos, Chain: names, Err: err}
		}
		if perr, ok := r.broken[name]; ok {
			return nil, fail(perr)
		}
		st.scope = stageScope(r.siteData, page, asMap(l.FrontMatter.Interface()), out)
		rendered, err := st.execute(name)
		if err != nil {
			return nil, fail(err)
		}
		out = rendered
	}
	return []byte(out), nil
}

// state is the per-render evaluation context. Includes run synchronously
// inside the template engine, so it needs no locking.
type state struct {
	r     *Renderer
	tmpl  *template.Template
	scope map[string]any
	stack []string
}

func (s *state) execute(name string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, s.scope); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// include evaluates a partial with the caller's scope. An optional argument
// is exposed to the partial as .include.
func (s *state) include(name string, args ...any) (template.HTML, error) {
	if len(s.stack) >= s.r.maxDepth {
		return "", &RecursionLimitError{Include: name, Limit: s.r.maxDepth, Stack: append([]string(nil), s.stack...)}
	}
	full := includePrefix + strings.TrimPrefix(name, "/")
	if perr, ok := s.r.broken[full]; ok {
		return "", perr
	}
	if s.tmpl.Lookup(full) == nil {
		return "", &IncludeNotFoundError{Name: name}
	}

	outer := s.scope
	inner := make(map[string]any, len(outer)+1)
	for k, v := range outer {
		inner[k] = v
	}
	if len(args) > 0 {
		inner[KeyInclude] = args[0]
	}

	s.stack = append(s.stack, name)
	s.scope = inner
	defer func() {
		s.stack = s.stack[:len(s.stack)-1]
		s.scope = outer
	}()
	return s.execute(full)
}
