package sorting

import "github.com/dshills/algostep-go/viz/step"

func emit(rec *step.Recorder, a []float64, ann step.Annotation) bool {
	return rec.Emit(step.Snapshot{Values: a}, ann)
}

// BubbleSort sorts a in place, reporting each adjacent swap.
func BubbleSort(a []float64, rec *step.Recorder) {
	n := len(a)
	for i := 0; i < n; i++ {
		for j := 0; j < n-i-1; j++ {
			if !(a[j] > a[j+1]) {
				continue
			}
			if !rec.Live() {
				return
			}
			a[j], a[j+1] = a[j+1], a[j]
			if !emit(rec, a, step.Annotation{
				Compared: []int{j, j + 1},
				Swapped:  []int{j, j + 1},
				Line:     bubbleSwapLine,
			}) {
				return
			}
		}
	}
}

// InsertionSort sorts a in place, reporting each shift and each final
// placement of the key (including placements that leave it where it was).
func InsertionSort(a []float64, rec *step.Recorder) {
	for i := 1; i < len(a); i++ {
		key := a[i]
		j := i - 1
		for j >= 0 && a[j] > key {
			if !rec.Live() {
				return
			}
			a[j+1] = a[j]
			if !emit(rec, a, step.Annotation{
				Compared: []int{j},
				Swapped:  []int{j + 1},
				Line:     insertionShiftLine,
			}) {
				return
			}
			j--
		}
		if !rec.Live() {
			return
		}
		a[j+1] = key
		if !emit(rec, a, step.Annotation{
			Swapped: []int{j + 1},
			Line:    insertionPlaceLine,
		}) {
			return
		}
	}
}

// SelectionSort sorts a in place, reporting one swap per pass. Passes whose
// minimum is already in place report nothing.
func SelectionSort(a []float64, rec *step.Recorder) {
	n := len(a)
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < n; j++ {
			if a[j] < a[minIdx] {
				minIdx = j
			}
		}
		if minIdx == i {
			continue
		}
		if !rec.Live() {
			return
		}
		a[i], a[minIdx] = a[minIdx], a[i]
		if !emit(rec, a, step.Annotation{
			Compared: []int{i, minIdx},
			Swapped:  []int{i, minIdx},
			Line:     selectionSwapLine,
		}) {
			return
		}
	}
}

type mergeFrame struct {
	lo, hi   int
	expanded bool
}

// MergeSort sorts a in place top-down, reporting the whole array each time a
// range of two or more elements has been merged back into it. Ranges are
// merged in the same post-order as the recursive formulation: left half,
// right half, then the parent.
func MergeSort(a []float64, rec *step.Recorder) {
	n := len(a)
	if n < 2 {
		return
	}
	buf := make([]float64, n)
	stack := []mergeFrame{{lo: 0, hi: n}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.hi-f.lo <= 1 {
			continue
		}
		mid := f.lo + (f.hi-f.lo)/2
		if !f.expanded {
			stack = append(stack,
				mergeFrame{lo: f.lo, hi: f.hi, expanded: true},
				mergeFrame{lo: mid, hi: f.hi},
				mergeFrame{lo: f.lo, hi: mid},
			)
			continue
		}
		if !rec.Live() {
			return
		}
		mergeRuns(a, buf, f.lo, mid, f.hi)
		if !emit(rec, a, step.Annotation{
			Range: []int{f.lo, f.hi},
			Line:  mergeWriteLine,
		}) {
			return
		}
	}
}

// mergeRuns merges the sorted runs a[lo:mid] and a[mid:hi] through buf.
// The right element is taken only when strictly smaller, so ties go left.
func mergeRuns(a, buf []float64, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if a[j] < a[i] {
			buf[k] = a[j]
			j++
		} else {
			buf[k] = a[i]
			i++
		}
		k++
	}
	k += copy(buf[k:], a[i:mid])
	copy(buf[k:], a[j:hi])
	copy(a[lo:hi], buf[lo:hi])
}

type span struct {
	lo, hi int
}

// QuickSort sorts a in place with Lomuto partitioning around the last
// element of each range. Every in-partition swap is reported, including a
// swap of an element with itself, followed by the pivot placement.
// Subranges are processed left before right, as in the recursive form.
func QuickSort(a []float64, rec *step.Recorder) {
	stack := []span{{lo: 0, hi: len(a) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.lo >= s.hi {
			continue
		}
		pivot := a[s.hi]
		i := s.lo
		for j := s.lo; j < s.hi; j++ {
			if !(a[j] < pivot) {
				continue
			}
			if !rec.Live() {
				return
			}
			a[i], a[j] = a[j], a[i]
			if !emit(rec, a, step.Annotation{
				Compared: []int{j, s.hi},
				Swapped:  []int{i, j},
				Line:     quickSwapLine,
			}) {
				return
			}
			i++
		}
		if !rec.Live() {
			return
		}
		a[i], a[s.hi] = a[s.hi], a[i]
		if !emit(rec, a, step.Annotation{
			Swapped: []int{i, s.hi},
			Line:    quickPivotLine,
		}) {
			return
		}
		stack = append(stack, span{lo: i + 1, hi: s.hi}, span{lo: s.lo, hi: i - 1})
	}
}

// HeapSort sorts a in place by building a max-heap and repeatedly moving the
// root to the end. Every sift-down swap and every root-to-end exchange is
// reported.
func HeapSort(a []float64, rec *step.Recorder) {
	n := len(a)
	for i := n/2 - 1; i >= 0; i-- {
		if !siftDown(a, n, i, rec) {
			return
		}
	}
	for i := n - 1; i > 0; i-- {
		if !rec.Live() {
			return
		}
		a[0], a[i] = a[i], a[0]
		if !emit(rec, a, step.Annotation{
			Swapped: []int{0, i},
			Line:    heapExtractLine,
		}) {
			return
		}
		if !siftDown(a, i, 0, rec) {
			return
		}
	}
}

// siftDown restores the max-heap property below i within a[:size]. It
// reports false if the run was halted.
func siftDown(a []float64, size, i int, rec *step.Recorder) bool {
	for {
		largest := i
		l, r := 2*i+1, 2*i+2
		if l < size && a[l] > a[largest] {
			largest = l
		}
		if r < size && a[r] > a[largest] {
			largest = r
		}
		if largest == i {
			return true
		}
		if !rec.Live() {
			return false
		}
		a[i], a[largest] = a[largest], a[i]
		if !emit(rec, a, step.Annotation{
			Compared: []int{i, largest},
			Swapped:  []int{i, largest},
			Line:     heapSiftSwapLine,
		}) {
			return false
		}
		i = largest
	}
}
