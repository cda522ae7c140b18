// Package step defines the immutable snapshots an algorithm run produces,
// the sequences that hold them, and the cancellation tokens that bound a run.
//
// Producers never hand out state directly. They describe each fully formed
// state to a Recorder, which stamps it with a contiguous index and either
// appends it to a batch Sequence or yields it to a streaming consumer. The
// same producer body backs both modes, so identical inputs always yield
// identical snapshots.
package step

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the opaque payload of a Step.
//
// Which fields are populated depends on the producer:
//   - sorts: Values is a full copy of the array
//   - graph traversals: Node is the visited node and Order the visiting order so far
//   - tree traversals: Values is the partial result and Node the visited value
//   - tree insert: Values is the root-to-new-node path and Node the inserted value
type Snapshot struct {
	Values []float64 `json:"values,omitempty"`
	Node   string    `json:"node,omitempty"`
	Order  []string  `json:"order,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Node: s.Node}
	if s.Values != nil {
		out.Values = append(make([]float64, 0, len(s.Values)), s.Values...)
	}
	if s.Order != nil {
		out.Order = append(make([]string, 0, len(s.Order)), s.Order...)
	}
	return out
}

// Annotation carries optional metadata describing what happened in a step.
type Annotation struct {
	// Compared holds the indices compared to decide this step.
	Compared []int `json:"compared,omitempty"`

	// Swapped holds the indices written or exchanged by this step.
	Swapped []int `json:"swapped,omitempty"`

	// Range is the half-open [lo, hi) interval materialized by a merge.
	Range []int `json:"range,omitempty"`

	// Line is the 1-based pseudocode line executing; 0 when untracked.
	Line int `json:"line,omitempty"`

	// Edge is the discovery edge key that reached Node, if any.
	Edge string `json:"edge,omitempty"`

	// Level is the BFS level, DFS depth, or tree depth of Node.
	Level int `json:"level,omitempty"`
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	out := a
	out.Compared = cloneInts(a.Compared)
	out.Swapped = cloneInts(a.Swapped)
	out.Range = cloneInts(a.Range)
	return out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append(make([]int, 0, len(in)), in...)
}

// Step is one immutable, fully formed snapshot of algorithm state.
//
// Index is strictly increasing and contiguous from 0 within a Sequence.
// Steps returned by this package never share memory with producer state;
// callers that mutate the slices inside a Step only damage their own copy.
type Step struct {
	Index      int        `json:"index"`
	Snapshot   Snapshot   `json:"snapshot"`
	Annotation Annotation `json:"annotation"`
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	return Step{
		Index:      s.Index,
		Snapshot:   s.Snapshot.Clone(),
		Annotation: s.Annotation.Clone(),
	}
}

// Fingerprint hashes the snapshot payload. Two steps have the same
// fingerprint exactly when their snapshots encode to the same bytes, which
// makes it a cheap way to compare states across runs or cursor moves.
// The index and annotation do not participate.
func (s Step) Fingerprint() uint64 {
	return s.Snapshot.Fingerprint()
}

// Fingerprint hashes the canonical byte encoding of the snapshot.
func (s Snapshot) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Values)))
	_, _ = d.Write(buf[:])
	for _, v := range s.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}

	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Node)))
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(s.Node)

	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Order)))
	_, _ = d.Write(buf[:])
	for _, id := range s.Order {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(id)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(id)
	}
	return d.Sum64()
}
