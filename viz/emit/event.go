package emit

// Event messages emitted by the playback controller.
const (
	MsgRunStarted   = "run_started"
	MsgStep         = "step"
	MsgPaused       = "paused"
	MsgResumed      = "resumed"
	MsgStopped      = "stopped"
	MsgCompleted    = "completed"
	MsgSuperseded   = "superseded"
	MsgSpeedChanged = "speed_changed"
)

// Event is a playback occurrence: a run starting, a step being delivered, or
// a transport transition.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Index is the sequence index of the step involved, or -1 for run-level
	// events that do not refer to a step.
	Index int

	// State is the controller state after the event, e.g. "running".
	State string

	// Msg is the event kind, one of the Msg constants.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "algorithm": algorithm name on run_started
	//   - "steps": sequence length on run_started and completed
	//   - "source": "tick" or "manual" on step
	//   - "interval_ms": tick interval on run_started and speed_changed
	Meta map[string]interface{}
}
