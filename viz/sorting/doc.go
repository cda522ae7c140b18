// Package sorting implements the six array sorts as step producers.
//
// Each sort works on its own copy of the input and reports every mutation it
// makes to a step.Recorder as a full-array snapshot. The comparison and
// emission policies are fixed so that identical inputs always produce
// identical sequences:
//
//	Bubble     strict > adjacent swap              step per swap
//	Insertion  strict > shift-while-greater        step per shift and per final placement
//	Selection  strict < running minimum            step per pass swap (skipped when i == min)
//	Merge      strict <, left wins ties            step per merged range of length >= 2
//	Quick      last element pivot, strict <        step per partition swap and pivot placement
//	Heap       max-heap sift-down                  step per heapify swap and root-to-end exchange
//
// Recursive formulations (merge, quick, sift-down) are expressed with explicit
// work stacks that preserve the recursive visitation order, so deep inputs
// cannot exhaust the goroutine stack.
//
// Cancellation is checked before every reported mutation. A canceled sort
// stops immediately; the sequence ends at the last committed step and its
// final snapshot is the partially sorted array. That is a normal terminal
// state, not an error.
package sorting
