package build

import "time"

// State is a node of the build state machine.
type State string

const (
	StateIdle          State = "idle"
	StateDiscovering   State = "discovering"
	StateConverting    State = "converting"
	StateResolvingURLs State = "resolving_urls"
	StateRendering     State = "rendering"
	StateWriting       State = "writing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Transition records one state the run passed through.
type Transition struct {
	State    State         `json:"state"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}
