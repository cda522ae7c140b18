package step

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

// ErrNonContiguous is returned by FromSteps when step indices do not run
// 0, 1, 2, … without gaps.
var ErrNonContiguous = errors.New("step: indices are not contiguous from 0")

// Sequence is the ordered, finite record of Steps one algorithm run produced.
//
// A Sequence is either materialized up front (Collect) or produced lazily as
// the consumer asks for steps (Stream). In streaming mode the producer runs
// as a coroutine that is resumed only from At, Len, Steps, All, and Close,
// so no mutation is ever observed half-applied.
//
// Sequence is safe for concurrent use. Steps handed out are copies.
type Sequence struct {
	mu        sync.Mutex
	origin    Snapshot
	steps     []Step
	next      func() (Step, bool)
	stop      func()
	done      bool
	truncated bool
}

// Collect runs body to completion under tok and returns the materialized
// sequence. origin describes the state before the first step.
func Collect(tok *Token, origin Snapshot, body Body) *Sequence {
	seq := &Sequence{origin: origin.Clone(), done: true}
	rec := &Recorder{tok: tok, yield: func(s Step) bool {
		seq.steps = append(seq.steps, s)
		return true
	}}
	body(rec)
	seq.truncated = rec.Halted()
	return seq
}

// Stream returns a sequence whose steps are produced on demand. The body
// does not start running until the first step is requested.
func Stream(tok *Token, origin Snapshot, body Body) *Sequence {
	seq := &Sequence{origin: origin.Clone()}
	src := func(yield func(Step) bool) {
		rec := &Recorder{tok: tok, yield: yield}
		body(rec)
		// The coroutine only runs inside next/stop, which are called with
		// seq.mu held.
		seq.truncated = rec.Halted()
	}
	seq.next, seq.stop = iter.Pull(iter.Seq[Step](src))
	return seq
}

// FromSteps rebuilds a materialized sequence from previously recorded steps,
// for example ones loaded from an archive.
func FromSteps(origin Snapshot, steps []Step) (*Sequence, error) {
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.Index != i {
			return nil, fmt.Errorf("%w: position %d has index %d", ErrNonContiguous, i, s.Index)
		}
		out[i] = s.Clone()
	}
	return &Sequence{origin: origin.Clone(), steps: out, done: true}, nil
}

// pullLocked materializes steps until index i exists or the producer ends.
func (s *Sequence) pullLocked(i int) bool {
	for len(s.steps) <= i && !s.done {
		st, ok := s.next()
		if !ok {
			s.done = true
			s.stop()
			break
		}
		s.steps = append(s.steps, st)
	}
	return i < len(s.steps)
}

// At returns the step at index i, producing it first if necessary.
func (s *Sequence) At(i int) (Step, bool) {
	if s == nil || i < 0 {
		return Step{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pullLocked(i) {
		return Step{}, false
	}
	return s.steps[i].Clone(), true
}

// Len drains the producer and returns the total number of steps.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.done {
		s.pullLocked(len(s.steps))
	}
	return len(s.steps)
}

// Available returns how many steps have been produced so far without
// advancing the producer.
func (s *Sequence) Available() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Materialized reports whether the producer has finished.
func (s *Sequence) Materialized() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Truncated reports whether the producer was stopped early by cancellation
// or Close. It is only meaningful once the sequence is materialized.
func (s *Sequence) Truncated() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

// Steps drains the producer and returns copies of every step.
func (s *Sequence) Steps() []Step {
	n := s.Len()
	out := make([]Step, 0, n)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.steps {
		out = append(out, st.Clone())
	}
	return out
}

// All iterates over the sequence in index order, producing lazily.
func (s *Sequence) All() iter.Seq[Step] {
	return func(yield func(Step) bool) {
		for i := 0; ; i++ {
			st, ok := s.At(i)
			if !ok || !yield(st) {
				return
			}
		}
	}
}

// Origin returns the state before the first step.
func (s *Sequence) Origin() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return s.origin.Clone()
}

// Last drains the producer and returns the final step.
func (s *Sequence) Last() (Step, bool) {
	n := s.Len()
	if n == 0 {
		return Step{}, false
	}
	return s.At(n - 1)
}

// Final returns the snapshot of the last step, or the origin when the
// sequence is empty. For a canceled sort this is the partially sorted
// dataset as of the last committed step.
func (s *Sequence) Final() Snapshot {
	if last, ok := s.Last(); ok {
		return last.Snapshot
	}
	return s.Origin()
}

// Close stops a streaming producer. Steps already produced stay readable;
// no further steps will be produced. Close is idempotent and a no-op for
// materialized sequences.
func (s *Sequence) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.stop()
}
