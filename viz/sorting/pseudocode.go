package sorting

// Pseudocode line numbers referenced by step.Annotation.Line.
const (
	bubbleSwapLine = 4

	insertionShiftLine = 4
	insertionPlaceLine = 6

	selectionSwapLine = 6

	mergeWriteLine = 7

	quickSwapLine  = 6
	quickPivotLine = 7

	heapSiftSwapLine = 5
	heapExtractLine  = 8
)

var listings = [numKinds][]string{
	Bubble: {
		"for i = 0 to n-1",
		"  for j = 0 to n-i-2",
		"    if a[j] > a[j+1]",
		"      swap a[j], a[j+1]",
	},
	Insertion: {
		"for i = 1 to n-1",
		"  key = a[i]; j = i-1",
		"  while j >= 0 and a[j] > key",
		"    a[j+1] = a[j]",
		"    j = j-1",
		"  a[j+1] = key",
	},
	Selection: {
		"for i = 0 to n-1",
		"  min = i",
		"  for j = i+1 to n-1",
		"    if a[j] < a[min]: min = j",
		"  if min != i",
		"    swap a[i], a[min]",
	},
	Merge: {
		"sort(lo, hi)",
		"  if hi-lo <= 1: return",
		"  mid = lo + (hi-lo)/2",
		"  sort(lo, mid)",
		"  sort(mid, hi)",
		"  merge: take right if right < left, else left",
		"  write merged run into a[lo:hi]",
	},
	Quick: {
		"sort(lo, hi)",
		"  if lo >= hi: return",
		"  pivot = a[hi]; i = lo",
		"  for j = lo to hi-1",
		"    if a[j] < pivot",
		"      swap a[i], a[j]; i = i+1",
		"  swap a[i], a[hi]",
		"  sort(lo, i-1); sort(i+1, hi)",
	},
	Heap: {
		"heapify(n, i)",
		"  largest = i; l = 2i+1; r = 2i+2",
		"  if l < n and a[l] > a[largest]: largest = l",
		"  if r < n and a[r] > a[largest]: largest = r",
		"  if largest != i: swap a[i], a[largest]; heapify(n, largest)",
		"for i = n/2-1 down to 0: heapify(n, i)",
		"for i = n-1 down to 1",
		"  swap a[0], a[i]",
		"  heapify(i, 0)",
	},
}

// Pseudocode returns the listing that step annotations for k index into.
// Line numbers in annotations are 1-based. The returned slice is a copy.
func Pseudocode(k Kind) []string {
	if !k.Valid() {
		return nil
	}
	return append([]string(nil), listings[k]...)
}
