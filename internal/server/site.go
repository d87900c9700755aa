package server

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/livereload"
	"git.home.luguber.info/inful/jellsite/internal/rebuild"
)

const notFoundPage = "404.html"

// site serves the published output of the current snapshot. While the
// latest rebuild has failed, page requests get the failure page instead;
// assets keep coming from the last good output.
func (s *Server) site() http.Handler {
	return s.pinSnapshot(s.pinned())
}

type snapshotKey struct{}

// pinSnapshot reads the controller's snapshot once per request so the file
// served and the generation tagged into it always agree.
func (s *Server) pinSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), snapshotKey{}, s.ctrl.Snapshot())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func snapshotFrom(r *http.Request) *rebuild.Snapshot {
	snap, _ := r.Context().Value(snapshotKey{}).(*rebuild.Snapshot)
	return snap
}

// pinned serves a request against the snapshot stored in its context.
func (s *Server) pinned() http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		snap := snapshotFrom(r)

		if f := s.ctrl.LastFailure(); f != nil && wantsPage(r) {
			renderFailurePage(w, f, s.scriptTag(snap, true))
			return
		}
		if snap == nil {
			if wantsPage(r) {
				renderPendingPage(w, s.scriptTag(nil, false))
				return
			}
			http.Error(w, "site not built yet", http.StatusServiceUnavailable)
			return
		}

		root := snap.Output
		if !exists(root, r.URL.Path) {
			serveNotFound(w, r, root)
			return
		}
		http.FileServer(http.Dir(root)).ServeHTTP(w, r)
	})
	if !s.opts.LiveReload {
		return h
	}
	return livereload.Injector(h, func(r *http.Request) string { return s.scriptTag(snapshotFrom(r), false) })
}

func (s *Server) scriptTag(snap *rebuild.Snapshot, failed bool) string {
	if !s.opts.LiveReload {
		return ""
	}
	var gen uint64
	if snap != nil {
		gen = snap.Generation
	}
	return livereload.Tag(gen, failed)
}

// exists reports whether urlPath names a file, or a directory holding an
// index.html, under root.
func exists(root, urlPath string) bool {
	name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+urlPath)))
	st, err := os.Stat(name)
	if err != nil {
		return false
	}
	if !st.IsDir() {
		return true
	}
	_, err = os.Stat(filepath.Join(name, "index.html"))
	return err == nil
}

func serveNotFound(w http.ResponseWriter, r *http.Request, root string) {
	body, err := os.ReadFile(filepath.Join(root, notFoundPage))
	if err != nil || !wantsPage(r) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}

// wantsPage reports whether r asks for an HTML document rather than an asset.
func wantsPage(r *http.Request) bool {
	switch strings.ToLower(path.Ext(r.URL.Path)) {
	case "", ".html", ".htm":
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
