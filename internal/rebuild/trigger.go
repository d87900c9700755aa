package rebuild

import (
	"sort"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/watch"
)

// Trigger sources.
const (
	SourceInitial  = "initial"
	SourceWatch    = "watch"
	SourceSchedule = "schedule"
	SourceManual   = "manual"
)

// Trigger asks for a rebuild. Changes lists what prompted it; builders may
// use it to narrow the work, the current one always rebuilds the whole site.
type Trigger struct {
	Source  string
	Changes []watch.Change
	At      time.Time
}

// merge folds later into t, keeping the latest source and one change per path.
func (t Trigger) merge(later Trigger) Trigger {
	byPath := make(map[string]watch.Change, len(t.Changes)+len(later.Changes))
	for _, c := range t.Changes {
		byPath[c.Path] = c
	}
	for _, c := range later.Changes {
		byPath[c.Path] = c
	}
	out := Trigger{Source: later.Source, At: later.At}
	for _, c := range byPath {
		out.Changes = append(out.Changes, c)
	}
	sort.Slice(out.Changes, func(i, j int) bool { return out.Changes[i].Path < out.Changes[j].Path })
	return out
}
