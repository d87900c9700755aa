package server

import (
	"html/template"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/jellsite/internal/rebuild"
	"git.home.luguber.info/inful/jellsite/internal/render"
)

var pageTemplates = template.Must(template.New("pages").Parse(`
{{- define "head" -}}
<!doctype html><html><head><meta charset="utf-8"><title>{{ . }}</title>
<style>body{font-family:sans-serif;max-width:800px;margin:50px auto;padding:20px}h1{color:#d32f2f}pre{background:#f5f5f5;padding:15px;border-radius:4px;overflow-x:auto;white-space:pre-wrap}dt{font-weight:bold}</style>
</head><body>
{{- end -}}

{{- define "failure" -}}
{{ template "head" "Build failed" }}
<h1>Build failed</h1>
<p>The site failed to rebuild. Fix the error below and save; this page reloads on the next successful build.</p>
{{- with .Failure }}
<dl>
{{- if .Stage }}<dt>Stage</dt><dd>{{ .Stage }}</dd>{{ end }}
{{- if .Source }}<dt>File</dt><dd><code>{{ .Source }}</code></dd>{{ end }}
{{- if .Layout }}<dt>Layout</dt><dd><code>{{ .Layout }}</code></dd>{{ end }}
{{- with $.Position }}<dt>Chain position</dt><dd>{{ . }}{{ if $.Failure.Chain }} of {{ range $i, $l := $.Failure.Chain }}{{ if $i }} &rarr; {{ end }}<code>{{ $l }}</code>{{ end }}{{ end }}</dd>{{ end }}
</dl>
<h2>Error</h2>
<pre>{{ .Message }}</pre>
{{- end }}
{{ .Script }}</body></html>
{{- end -}}

{{- define "pending" -}}
{{ template "head" "Building site" }}
<h1>Site is being built</h1>
<p>The first build has not finished yet. This page is replaced automatically once it completes.</p>
{{ .Script }}</body></html>
{{- end -}}
`))

type pageData struct {
	Failure  *rebuild.Failure
	Position string
	Script   template.HTML
}

func renderFailurePage(w http.ResponseWriter, f *rebuild.Failure, script string) {
	data := pageData{Failure: f, Script: template.HTML(script)} //nolint:gosec // script tag is generated by livereload.Tag
	if f != nil && f.Position != nil {
		if *f.Position == render.BodyPosition {
			data.Position = "page body"
		} else {
			data.Position = strconv.Itoa(*f.Position)
		}
	}
	renderPage(w, "failure", data)
}

func renderPendingPage(w http.ResponseWriter, script string) {
	renderPage(w, "pending", pageData{Script: template.HTML(script)}) //nolint:gosec // script tag is generated by livereload.Tag
}

func renderPage(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = pageTemplates.ExecuteTemplate(w, name, data)
}
