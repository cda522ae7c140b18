package step

import (
	"errors"
	"testing"
)

// counter emits n steps whose snapshot holds the step number.
func counter(n int, started *bool) Body {
	return func(rec *Recorder) {
		if started != nil {
			*started = true
		}
		for i := 0; i < n; i++ {
			if !rec.Live() {
				return
			}
			if !rec.Emit(Snapshot{Values: []float64{float64(i)}}, Annotation{Line: 1}) {
				return
			}
		}
	}
}

func TestCollect(t *testing.T) {
	seq := Collect(NewToken(), Snapshot{Values: []float64{-1}}, counter(3, nil))
	if seq.Len() != 3 || !seq.Materialized() || seq.Truncated() {
		t.Fatalf("len=%d materialized=%v truncated=%v", seq.Len(), seq.Materialized(), seq.Truncated())
	}
	for i, s := range seq.Steps() {
		if s.Index != i || s.Snapshot.Values[0] != float64(i) {
			t.Errorf("step %d = %+v", i, s)
		}
	}
	if got := seq.Final().Values[0]; got != 2 {
		t.Errorf("final = %v, want 2", got)
	}
	if _, ok := seq.At(3); ok {
		t.Error("At past the end should fail")
	}
	if _, ok := seq.At(-1); ok {
		t.Error("negative index should fail")
	}
}

func TestCollect_CanceledMidRun(t *testing.T) {
	tok := NewToken()
	seq := Collect(tok, Snapshot{}, func(rec *Recorder) {
		for i := 0; rec.Live(); i++ {
			rec.Emit(Snapshot{Values: []float64{float64(i)}}, Annotation{})
			if rec.Count() == 2 {
				tok.Cancel()
			}
		}
	})
	if seq.Len() != 2 || !seq.Truncated() {
		t.Errorf("len=%d truncated=%v, want 2 true", seq.Len(), seq.Truncated())
	}
}

func TestCollect_EmptyUsesOrigin(t *testing.T) {
	seq := Collect(NewToken(), Snapshot{Values: []float64{7}}, func(*Recorder) {})
	if _, ok := seq.Last(); ok {
		t.Error("empty sequence has no last step")
	}
	if got := seq.Final(); len(got.Values) != 1 || got.Values[0] != 7 {
		t.Errorf("Final = %+v, want origin", got)
	}
}

func TestStream_Lazy(t *testing.T) {
	started := false
	seq := Stream(NewToken(), Snapshot{}, counter(5, &started))
	if started || seq.Available() != 0 || seq.Materialized() {
		t.Fatal("stream should not start before the first request")
	}

	if _, ok := seq.At(1); !ok {
		t.Fatal("At(1) failed")
	}
	if !started || seq.Available() != 2 {
		t.Errorf("available = %d, want 2", seq.Available())
	}

	var got []int
	for s := range seq.All() {
		got = append(got, s.Index)
	}
	if len(got) != 5 || got[4] != 4 || !seq.Materialized() {
		t.Errorf("All = %v materialized=%v", got, seq.Materialized())
	}
}

func TestStream_CloseStopsProducer(t *testing.T) {
	seq := Stream(NewToken(), Snapshot{}, counter(100, nil))
	seq.At(2)
	seq.Close()
	seq.Close()

	if !seq.Materialized() || !seq.Truncated() {
		t.Errorf("materialized=%v truncated=%v", seq.Materialized(), seq.Truncated())
	}
	if seq.Len() != 3 {
		t.Errorf("len = %d, want 3", seq.Len())
	}
	if _, ok := seq.At(3); ok {
		t.Error("closed stream produced a new step")
	}
}

func TestStream_CancelEndsAtLastCommittedStep(t *testing.T) {
	tok := NewToken()
	seq := Stream(tok, Snapshot{}, counter(100, nil))
	seq.At(0)
	tok.Cancel()
	if seq.Len() != 1 {
		t.Errorf("len = %d, want 1", seq.Len())
	}
	if !seq.Truncated() {
		t.Error("canceled stream should be truncated")
	}
}

func TestSequence_StepsAreCopies(t *testing.T) {
	seq := Collect(NewToken(), Snapshot{}, counter(1, nil))
	s, _ := seq.At(0)
	s.Snapshot.Values[0] = 99
	if again, _ := seq.At(0); again.Snapshot.Values[0] != 0 {
		t.Error("mutating a returned step changed the sequence")
	}
}

func TestFromSteps(t *testing.T) {
	steps := Collect(NewToken(), Snapshot{}, counter(3, nil)).Steps()
	seq, err := FromSteps(Snapshot{}, steps)
	if err != nil {
		t.Fatal(err)
	}
	if seq.Len() != 3 {
		t.Errorf("len = %d, want 3", seq.Len())
	}

	steps[1].Index = 5
	if _, err := FromSteps(Snapshot{}, steps); !errors.Is(err, ErrNonContiguous) {
		t.Errorf("err = %v, want ErrNonContiguous", err)
	}
}

func TestNilSequenceAndRecorder(t *testing.T) {
	var seq *Sequence
	seq.Close()
	if seq.Len() != 0 || seq.Available() != 0 || !seq.Materialized() || seq.Truncated() {
		t.Error("nil sequence should be empty and materialized")
	}

	var rec *Recorder
	if !rec.Live() || !rec.Emit(Snapshot{}, Annotation{}) || rec.Count() != 0 || rec.Halted() {
		t.Error("nil recorder should accept everything and record nothing")
	}
}

func TestFingerprint(t *testing.T) {
	a := Snapshot{Values: []float64{1, 2}, Node: "x", Order: []string{"a", "b"}}
	b := a.Clone()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal snapshots must share a fingerprint")
	}
	b.Values[1] = 3
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different values should change the fingerprint")
	}
	c := Snapshot{Order: []string{"ab"}}
	d := Snapshot{Order: []string{"a", "b"}}
	if c.Fingerprint() == d.Fingerprint() {
		t.Error("order boundaries must be part of the fingerprint")
	}
	s := Step{Index: 4, Snapshot: a, Annotation: Annotation{Line: 3}}
	if s.Fingerprint() != a.Fingerprint() {
		t.Error("step fingerprint should ignore index and annotation")
	}
}
