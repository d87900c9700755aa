package livereload

import (
	"fmt"
	"html"
	"net/http"
)

// Paths served by the dev server.
const (
	PollPath   = "/__livereload"
	EventsPath = "/__livereload/events"
	ScriptPath = "/__livereload.js"
)

// Script is the browser client. The including tag carries the generation the
// page was served at and whether the page is the build error page. The client
// reloads when a newer generation appears, or on a failure announcement
// unless it already shows the error page. Without EventSource it polls.
const Script = `(() => {
  if (window.__JELLSITE_LR__) return;
  window.__JELLSITE_LR__ = true;
  const tag = document.currentScript;
  const seen = Number(tag && tag.dataset.generation || 0);
  const failed = !!(tag && tag.dataset.failed === "true");
  const reload = () => location.reload();
  const handle = (p, failure) => {
    if (p.generation > seen) return reload();
    if (failure && !failed) return reload();
    if (!failure && !p.error && failed) return reload();
  };
  function poll() {
    fetch("` + PollPath + `?since=" + seen, {cache: "no-store"})
      .then(r => r.json())
      .then(p => handle(p, !!p.error))
      .catch(() => {})
      .finally(() => setTimeout(poll, 1000));
  }
  if (!window.EventSource) return poll();
  function connect() {
    const es = new EventSource("` + EventsPath + `");
    es.onmessage = e => { try { handle(JSON.parse(e.data), false); } catch (_) {} };
    es.addEventListener("failure", e => { try { handle(JSON.parse(e.data), true); } catch (_) {} });
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

// ScriptHandler serves Script.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(Script))
	})
}

// Tag returns the script element injected into served HTML.
func Tag(generation uint64, failed bool) string {
	return fmt.Sprintf(`<script src="%s" data-generation="%d" data-failed="%t"></script>`,
		html.EscapeString(ScriptPath), generation, failed)
}
