package render

import (
	"html/template"

	"git.home.luguber.info/inful/jellsite/internal/content"
)

// Scope keys visible to layouts and templated bodies.
const (
	KeySite    = "site"
	KeyPage    = "page"
	KeyLayout  = "layout"
	KeyContent = "content"
	KeyInclude = "include"
)

// siteScope projects a Site onto template data. The result is built once per
// Renderer and only read afterwards, so concurrent renders may share it.
func siteScope(site *content.Site, pages map[*content.Unit]map[string]any) map[string]any {
	scope := asMap(site.Config.Raw.Interface())

	scope["title"] = site.Config.Title
	scope["description"] = site.Config.Description
	scope["url"] = site.Config.URL
	scope["baseurl"] = site.Config.BaseURL
	scope["time"] = site.Time
	scope["data"] = asMap(site.Data.Interface())
	scope["posts"] = unitList(site.Posts, pages)
	scope["pages"] = unitList(site.Pages, pages)

	collections := map[string]any{}
	for name, docs := range site.Collections {
		list := unitList(docs, pages)
		collections[name] = list
		if _, taken := scope[name]; !taken {
			scope[name] = list
		}
	}
	collections[content.PostsCollection] = scope["posts"]
	scope["collections"] = collections

	static := make([]any, 0, len(site.Static))
	for _, f := range site.Static {
		static = append(static, map[string]any{
			"path":          f.SourcePath,
			"url":           "/" + f.OutputPath,
			"modified_time": f.ModTime,
		})
	}
	scope["static_files"] = static
	return scope
}

// pageScope returns the public metadata of a unit: its front matter plus
// the fields computed by the build.
func pageScope(u *content.Unit) map[string]any {
	m := asMap(u.FrontMatter.Interface())
	m["url"] = u.URL
	m["title"] = u.Title
	m["slug"] = u.Slug
	m["path"] = u.SourcePath
	m["collection"] = u.Collection
	m["draft"] = u.Draft
	m["layout"] = u.Layout
	m["excerpt"] = template.HTML(u.Excerpt)
	m["content"] = template.HTML(u.BodyHTML)
	if u.HasDate {
		m["date"] = u.Date
	}
	if cats := u.FrontMatter.Strings("categories"); len(cats) > 0 {
		m["categories"] = toAny(cats)
	}
	if tags := u.FrontMatter.Strings("tags"); len(tags) > 0 {
		m["tags"] = toAny(tags)
	}
	return m
}

func unitList(units []*content.Unit, pages map[*content.Unit]map[string]any) []any {
	out := make([]any, 0, len(units))
	for _, u := range units {
		out = append(out, pages[u])
	}
	return out
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// stageScope is the dot of one evaluation step.
func stageScope(site, page, layout map[string]any, content template.HTML) map[string]any {
	return map[string]any{
		KeySite:    site,
		KeyPage:    page,
		KeyLayout:  layout,
		KeyContent: content,
	}
}
