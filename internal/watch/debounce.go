package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects changes and hands them to fire once no further change
// has arrived for the quiet window. Each burst fires exactly once.
type Debouncer struct {
	window time.Duration
	fire   func([]Change)

	mu      sync.Mutex
	pending map[string]Change
	timer   *time.Timer
	stopped bool
}

// NewDebouncer returns a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration, fire func([]Change)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, fire: fire, pending: map[string]Change{}}
}

// Add records c and restarts the quiet window. A later change to the same
// path replaces the earlier one.
func (d *Debouncer) Add(c Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[c.Path] = c
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
		return
	}
	d.timer.Reset(d.window)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Change, 0, len(d.pending))
	for _, c := range d.pending {
		batch = append(batch, c)
	}
	d.pending = map[string]Change{}
	d.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.fire(batch)
}

// Stop discards pending changes; no further batches fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	clear(d.pending)
}
