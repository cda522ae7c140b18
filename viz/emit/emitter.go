// Package emit carries playback events to logging and tracing backends.
//
// The playback controller reports every run start, delivered step, and
// transport transition as an Event. Backends implement Emitter; Multi fans
// out to several at once.
package emit

// Emitter receives playback events.
//
// Implementations should be:
//   - Non-blocking: events are emitted from the playback goroutine
//   - Thread-safe: may be called from the playback goroutine and from
//     transport calls on other goroutines
//   - Resilient: never panic on a failing backend
type Emitter interface {
	// Emit sends an event to the configured backend.
	Emit(event Event)
}

// Multi fans every event out to each of its emitters in order. Nil entries
// are skipped.
type Multi []Emitter

// Emit forwards event to every emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
