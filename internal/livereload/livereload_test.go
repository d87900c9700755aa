package livereload

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannel_GenerationStrictlyIncreases(t *testing.T) {
	c := NewChannel(nil)
	require.Equal(t, uint64(0), c.Current())
	require.False(t, c.IsStale(0))

	require.Equal(t, uint64(1), c.Advance())
	require.True(t, c.IsStale(0))
	require.False(t, c.IsStale(1))

	c.Fail(errors.New("render failed"))
	require.Equal(t, uint64(1), c.Current(), "failure must not change the generation")
	require.Equal(t, "render failed", c.LastError())

	require.Equal(t, uint64(2), c.Advance())
	require.Empty(t, c.LastError())
	require.True(t, c.IsStale(1))
}

func TestChannel_SlowSubscriberKeepsLatest(t *testing.T) {
	c := NewChannel(nil)
	events, cancel := c.Subscribe()
	defer cancel()

	c.Advance()
	c.Advance()
	c.Advance()

	ev := <-events
	require.Equal(t, uint64(3), ev.Generation)
	select {
	case extra := <-events:
		t.Fatalf("unexpected queued event %+v", extra)
	default:
	}
}

func TestChannel_CloseEndsSubscriptions(t *testing.T) {
	c := NewChannel(nil)
	events, cancel := c.Subscribe()
	c.Close()
	_, ok := <-events
	require.False(t, ok)
	cancel()

	late, _ := c.Subscribe()
	_, ok = <-late
	require.False(t, ok)
}

func TestPollHandler(t *testing.T) {
	c := NewChannel(nil)
	c.Advance()
	c.Advance()
	h := PollHandler(c)

	get := func(query string) (int, PollResponse) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PollPath+query, nil))
		var resp PollResponse
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		}
		return rec.Code, resp
	}

	code, resp := get("?since=1")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, PollResponse{Generation: 2, Reload: true}, resp)

	_, resp = get("?since=2")
	require.False(t, resp.Reload)

	_, resp = get("?since=5")
	require.False(t, resp.Reload)

	_, resp = get("")
	require.Equal(t, uint64(2), resp.Generation)
	require.False(t, resp.Reload)

	code, _ = get("?since=abc")
	require.Equal(t, http.StatusBadRequest, code)
}

func readUntil(t *testing.T, r *bufio.Reader, needle string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.Contains(line, needle) {
			return
		}
	}
	t.Fatalf("did not observe %q", needle)
}

func TestEventsHandler_StreamsGenerations(t *testing.T) {
	c := NewChannel(nil)
	c.Advance()
	srv := httptest.NewServer(EventsHandler(c))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	readUntil(t, r, `"generation":1`)

	c.Fail(errors.New("boom"))
	readUntil(t, r, "event: failure")
	readUntil(t, r, `"error":"boom"`)

	c.Advance()
	readUntil(t, r, `"generation":2`)
}

func TestInsertBeforeBodyEnd(t *testing.T) {
	tag := "<script></script>"
	require.Equal(t, "<html><body>x<script></script></body></html>",
		string(InsertBeforeBodyEnd([]byte("<html><body>x</body></html>"), tag)))
	require.Equal(t, "<p>fragment</p><script></script>",
		string(InsertBeforeBodyEnd([]byte("<p>fragment</p>"), tag)))
	require.Equal(t, "<body><!-- </body> -->y<script></script></BODY>",
		string(InsertBeforeBodyEnd([]byte("<body><!-- </body> -->y</BODY>"), tag)))
}

func TestInjector(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", "27")
		_, _ = io.WriteString(w, "<html><body>x</body></html>")
	})
	mux.HandleFunc("/site.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "body{}</body>")
	})
	h := Injector(mux, func(*http.Request) string { return Tag(4, false) })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page.html", nil))
	body := rec.Body.String()
	require.Contains(t, body, `data-generation="4"`)
	require.True(t, strings.HasSuffix(body, "</script></body></html>"))
	require.Equal(t, strconv.Itoa(len(body)), rec.Header().Get("Content-Length"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/site.css", nil))
	require.Equal(t, "body{}</body>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), "data-generation")
}

func TestInjector_TagReadBeforeServing(t *testing.T) {
	var gen uint64 = 3
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<body>generation 3</body>")
		gen = 4
	})
	h := Injector(next, func(*http.Request) string { return Tag(gen, false) })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil))
	require.Equal(t, "<body>generation 3"+Tag(3, false)+"</body>", rec.Body.String())
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string][]string
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgs == nil {
		f.msgs = map[string][]string{}
	}
	f.msgs[subject] = append(f.msgs[subject], string(data))
	return nil
}

func (f *fakePublisher) count(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs[subject])
}

func TestNATSRelay_PublishesAdvances(t *testing.T) {
	pub := &fakePublisher{}
	relay := newRelay(pub, "")
	c := NewChannel(nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx, c)
		close(done)
	}()

	require.Eventually(t, func() bool {
		c.Advance()
		return pub.count(DefaultSubject) > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
	pub.mu.Lock()
	defer pub.mu.Unlock()
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(pub.msgs[DefaultSubject][0]), &ev))
	require.Positive(t, ev.Generation)
}
