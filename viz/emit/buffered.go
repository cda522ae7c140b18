package emit

import "sync"

// BufferedEmitter stores events in memory, grouped by run, and answers
// history queries. It is meant for tests and for replay tooling.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// HistoryFilter selects events from a run's history. Zero-valued fields do
// not filter; set fields are combined with AND.
type HistoryFilter struct {
	Msg      string // event kind (empty = no filter)
	State    string // controller state (empty = no filter)
	MinIndex *int   // index >= MinIndex (nil = no filter)
	MaxIndex *int   // index <= MaxIndex (nil = no filter)
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit appends event to its run's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// GetHistory returns a copy of every event recorded for runID, in emission
// order. It never returns nil.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	return b.GetHistoryWithFilter(runID, HistoryFilter{})
}

// GetHistoryWithFilter returns the events for runID that match filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// Runs returns the ids of every run with recorded events.
func (b *BufferedEmitter) Runs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.events))
	for id := range b.events {
		ids = append(ids, id)
	}
	return ids
}

func (f HistoryFilter) matches(event Event) bool {
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.State != "" && event.State != f.State {
		return false
	}
	if f.MinIndex != nil && event.Index < *f.MinIndex {
		return false
	}
	if f.MaxIndex != nil && event.Index > *f.MaxIndex {
		return false
	}
	return true
}

// Clear removes the events for runID, or every event when runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, runID)
	}
}
