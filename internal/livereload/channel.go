// Package livereload tracks the served site generation and tells browsers
// when the page they show is out of date.
//
// The contract is a single comparison: a client holding generation N must
// reload once the server's generation is greater than N. Intermediate
// generations may be skipped; only the latest value matters.
package livereload

import (
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/jellsite/internal/metrics"
)

// Event announces a new generation, or a failed rebuild when Error is set.
// A failure never changes the generation.
type Event struct {
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
}

// Channel holds the generation counter and fans events out to subscribers.
type Channel struct {
	gen      atomic.Uint64
	recorder metrics.Recorder

	mu        sync.Mutex
	nextID    int
	subs      map[int]chan Event
	lastError string
	closed    bool
}

// NewChannel returns a Channel at generation 0.
func NewChannel(rec metrics.Recorder) *Channel {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Channel{recorder: rec, subs: map[int]chan Event{}}
}

// Current returns the latest generation.
func (c *Channel) Current() uint64 { return c.gen.Load() }

// IsStale reports whether a client that last saw generation seen must reload.
func (c *Channel) IsStale(seen uint64) bool { return c.Current() > seen }

// Advance increments the generation after a successful snapshot swap and
// returns the new value.
func (c *Channel) Advance() uint64 {
	c.mu.Lock()
	g := c.gen.Add(1)
	c.lastError = ""
	c.broadcast(Event{Generation: g})
	c.mu.Unlock()
	c.recorder.SetGeneration(g)
	return g
}

// Fail announces a failed rebuild without touching the generation.
func (c *Channel) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err.Error()
	c.broadcast(Event{Generation: c.gen.Load(), Error: c.lastError})
}

// LastError returns the message of the failure since the last Advance, if any.
func (c *Channel) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Snapshot returns the event a newly connected client should see first.
func (c *Channel) Snapshot() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Event{Generation: c.gen.Load(), Error: c.lastError}
}

// Subscribe registers a receiver. Slow receivers only ever hold the newest
// event. The returned function unsubscribes and closes the channel.
func (c *Channel) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close ends every subscription; later subscriptions are closed immediately.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// broadcast must be called with mu held.
func (c *Channel) broadcast(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// replace the stale event
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
