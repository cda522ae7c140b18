package step

// Body is a producer: an algorithm that describes each state it reaches to
// the Recorder it is given.
//
// A Body must call Recorder.Live before every mutation that will be reported
// and must return as soon as Live or Emit reports false. The Recorder copies
// everything it is handed, so a Body may keep mutating its working state.
type Body func(rec *Recorder)

// Recorder stamps the states a Body reports into Steps and forwards them to
// either a batch Sequence or a streaming consumer.
//
// A nil *Recorder accepts everything and records nothing, which lets the
// algorithms be called purely for their results.
type Recorder struct {
	tok    *Token
	yield  func(Step) bool
	next   int
	halted bool
}

// Live reports whether the run may continue. It returns false once the token
// has been canceled or the consumer has stopped pulling; after that it keeps
// returning false.
func (r *Recorder) Live() bool {
	if r == nil {
		return true
	}
	if r.halted {
		return false
	}
	if r.tok.Canceled() {
		r.halted = true
		return false
	}
	return true
}

// Emit commits one step. It re-checks the token first, so a run canceled
// between Live and Emit still ends at the last committed step. Emit reports
// whether the step was committed.
func (r *Recorder) Emit(snap Snapshot, ann Annotation) bool {
	if r == nil {
		return true
	}
	if !r.Live() {
		return false
	}
	st := Step{
		Index:      r.next,
		Snapshot:   snap.Clone(),
		Annotation: ann.Clone(),
	}
	if !r.yield(st) {
		r.halted = true
		return false
	}
	r.next++
	return true
}

// Count returns the number of committed steps.
func (r *Recorder) Count() int {
	if r == nil {
		return 0
	}
	return r.next
}

// Halted reports whether the run was cut short by cancellation or by the
// consumer.
func (r *Recorder) Halted() bool {
	if r == nil {
		return false
	}
	return r.halted
}
