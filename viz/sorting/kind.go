package sorting

import (
	"fmt"
	"strings"

	"github.com/dshills/algostep-go/viz/step"
)

// Kind identifies one of the sort algorithms.
type Kind int

const (
	Bubble Kind = iota
	Insertion
	Selection
	Merge
	Quick
	Heap
	numKinds
)

var kindNames = [numKinds]string{
	Bubble:    "bubble",
	Insertion: "insertion",
	Selection: "selection",
	Merge:     "merge",
	Quick:     "quick",
	Heap:      "heap",
}

var bodies = [numKinds]func([]float64, *step.Recorder){
	Bubble:    BubbleSort,
	Insertion: InsertionSort,
	Selection: SelectionSort,
	Merge:     MergeSort,
	Quick:     QuickSort,
	Heap:      HeapSort,
}

// Kinds returns every sort in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the lowercase algorithm name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("sorting.Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k names a known sort.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// ParseKind maps a name such as "quick" to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("sorting: unknown algorithm %q", name)
}

// Body returns the producer for k bound to values. The returned body copies
// values when it runs, so the caller's slice is never mutated.
func Body(k Kind, values []float64) step.Body {
	if !k.Valid() {
		return func(*step.Recorder) {}
	}
	sortFn := bodies[k]
	return func(rec *step.Recorder) {
		work := append(make([]float64, 0, len(values)), values...)
		sortFn(work, rec)
	}
}

// Run sorts a copy of values with k and returns the materialized sequence.
func Run(k Kind, values []float64, tok *step.Token) *step.Sequence {
	return step.Collect(tok, step.Snapshot{Values: values}, Body(k, values))
}

// Stream is like Run but produces steps lazily as they are requested.
func Stream(k Kind, values []float64, tok *step.Token) *step.Sequence {
	return step.Stream(tok, step.Snapshot{Values: values}, Body(k, values))
}
