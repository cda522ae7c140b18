package playback

import (
	"fmt"

	"github.com/dshills/algostep-go/viz/step"
)

// State is the playback state of a Controller.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
	Completed
)

var stateNames = [...]string{
	Idle:      "idle",
	Running:   "running",
	Paused:    "paused",
	Stopped:   "stopped",
	Completed: "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("playback.State(%d)", int(s))
	}
	return stateNames[s]
}

// Live reports whether s still owns the timer, i.e. Running or Paused.
func (s State) Live() bool {
	return s == Running || s == Paused
}

// Frame is one delivery to observers.
//
// Position is the number of applied steps after the delivery. For Position
// p > 0, Step is the sequence step at index p-1. A frame at Position 0 is
// only produced by stepping back to the start; its Step carries the
// sequence origin with Index -1.
type Frame struct {
	RunID    string
	Position int
	Step     step.Step
	State    State
}

// Observer receives frames synchronously, in delivery order.
//
// An Observer may call Pause, Resume, Stop, SetSpeed, and the read-only
// accessors. It must not call Prepare, Start, Play, StepForward, or
// StepBackward synchronously; those wait for the delivery in progress.
type Observer func(Frame)

// CompletionFunc is called with the id and sequence of a run that reached
// Completed. The same re-entrancy rules as for an Observer apply.
type CompletionFunc func(runID string, seq *step.Sequence)
