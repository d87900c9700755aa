package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
	"git.home.luguber.info/inful/jellsite/internal/permalink"
)

// baseFuncs are the helpers shared by every render. "include" is a
// placeholder replaced per render so each unit gets its own depth counter.
func baseFuncs(cfg *config.Config, md *markdown.Renderer) template.FuncMap {
	return template.FuncMap{
		"include": func(string, ...any) (template.HTML, error) {
			return "", fmt.Errorf("include called outside a render")
		},
		"relative_url": func(v any) string { return relativeURL(cfg.BaseURL, toString(v)) },
		"absolute_url": func(v any) string {
			return strings.TrimSuffix(cfg.URL, "/") + relativeURL(cfg.BaseURL, toString(v))
		},
		"slugify":        func(v any) string { return permalink.Slugify(toString(v)) },
		"date_to_string": func(v any) string { return formatDate("02 Jan 2006", v) },
		"date_format":    formatDate,
		"jsonify":        jsonify,
		"xml_escape":     func(v any) string { return html.EscapeString(toString(v)) },
		"markdownify": func(v any) (template.HTML, error) {
			out, err := md.Render([]byte(toString(v)))
			return template.HTML(out), err
		},
		"where":   where,
		"default": defaultValue,
		"dict":    dict,
	}
}

// relativeURL prefixes a site path with the base URL.
func relativeURL(baseURL, p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	base := strings.Trim(baseURL, "/")
	p = strings.TrimPrefix(p, "/")
	switch {
	case base == "":
		return "/" + p
	case p == "":
		return "/" + base + "/"
	default:
		return "/" + base + "/" + p
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case template.HTML:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatDate(layout string, v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	default:
		return ""
	}
}

func jsonify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// where keeps the mappings in items whose key field prints as value.
func where(items any, key string, value any) []any {
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	want := toString(value)
	var out []any
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		got, present := m[key]
		if !present {
			continue
		}
		if toString(got) == want {
			out = append(out, item)
			continue
		}
		if list, ok := got.([]any); ok {
			for _, el := range list {
				if toString(el) == want {
					out = append(out, item)
					break
				}
			}
		}
	}
	return out
}

// defaultValue returns fallback when v is missing or empty.
func defaultValue(fallback, v any) any {
	if isEmpty(v) {
		return fallback
	}
	return v
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs, got %d arguments", len(kv))
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %d is %T, not string", i/2, kv[i])
		}
		out[k] = kv[i+1]
	}
	return out, nil
}
