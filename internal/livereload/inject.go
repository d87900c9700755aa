package livereload

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxInjectSize bounds buffering; larger responses pass through untouched.
const maxInjectSize = 4 << 20

// InsertBeforeBodyEnd inserts snippet before the last </body> end tag of doc,
// or appends it when the document has none. Tags inside comments, scripts or
// attribute values are not mistaken for the end of the body.
func InsertBeforeBodyEnd(doc []byte, snippet string) []byte {
	at := -1
	offset := 0
	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Body {
				at = offset
			}
		}
		offset += len(raw)
	}
	out := make([]byte, 0, len(doc)+len(snippet))
	if at < 0 {
		out = append(out, doc...)
		return append(out, snippet...)
	}
	out = append(out, doc[:at]...)
	out = append(out, snippet...)
	return append(out, doc[at:]...)
}

// Injector wraps next and adds the tag returned by tag to every HTML
// response. tag is evaluated before next runs.
func Injector(next http.Handler, tag func(r *http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		snippet := tag(r)
		iw := &injectWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(iw, r)
		iw.finish(snippet)
	})
}

// injectWriter buffers an HTML response until the handler returns.
type injectWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	passthrough bool
	buf         []byte
}

func (w *injectWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	if !isHTML(w.Header()) || code != http.StatusOK {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *injectWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(p))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(p)
	}
	if len(w.buf)+len(p) > maxInjectSize {
		w.passthrough = true
		w.Header().Del("Content-Length")
		w.ResponseWriter.WriteHeader(w.status)
		if _, err := w.ResponseWriter.Write(w.buf); err != nil {
			return 0, err
		}
		w.buf = nil
		return w.ResponseWriter.Write(p)
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *injectWriter) finish(tag string) {
	if w.passthrough {
		return
	}
	if !w.wroteHeader {
		w.ResponseWriter.WriteHeader(w.status)
		return
	}
	body := InsertBeforeBodyEnd(w.buf, tag)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(body)
}

func isHTML(h http.Header) bool {
	return strings.HasPrefix(h.Get("Content-Type"), "text/html")
}
