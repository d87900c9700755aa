package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

// HeartbeatInterval spaces SSE keep-alive comments.
var HeartbeatInterval = 30 * time.Second

// PollResponse answers a generation comparison.
type PollResponse struct {
	Generation uint64 `json:"generation"`
	Reload     bool   `json:"reload"`
	Error      string `json:"error,omitempty"`
}

// PollHandler answers GET ?since=N with the current generation and whether a
// client holding N must reload. A missing since only reports the generation.
func PollHandler(c *Channel) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := c.Snapshot()
		resp := PollResponse{Generation: snap.Generation, Error: snap.Error}
		if raw := r.URL.Query().Get("since"); raw != "" {
			since, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				http.Error(w, "since must be a non-negative integer", http.StatusBadRequest)
				return
			}
			resp.Reload = snap.Generation > since
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Debug("livereload poll write", logfields.Error(err))
		}
	})
}

// EventsHandler streams events as server-sent events. A client first gets
// the current state, then every later event.
func EventsHandler(c *Channel) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", http.StatusInternalServerError)
			return
		}
		events, unsubscribe := c.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		bw := bufio.NewWriter(w)
		send := func(ev Event) bool {
			if err := writeEvent(bw, ev); err != nil {
				slog.Debug("livereload write", logfields.Error(err))
				return false
			}
			if err := bw.Flush(); err != nil {
				return false
			}
			flusher.Flush()
			return true
		}
		if _, err := bw.WriteString(": connected\n\n"); err != nil {
			return
		}
		if !send(c.Snapshot()) {
			return
		}

		hb := time.NewTicker(HeartbeatInterval)
		defer hb.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-events:
				if !ok || !send(ev) {
					return
				}
			case <-hb.C:
				if _, err := bw.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := bw.Flush(); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}

func writeEvent(bw *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Error != "" {
		if _, err := bw.WriteString("event: failure\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("data: "); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	_, err = bw.WriteString("\n\n")
	return err
}
