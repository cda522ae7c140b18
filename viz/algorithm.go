package viz

import (
	"fmt"
	"strings"

	"github.com/dshills/algostep-go/viz/sorting"
	"github.com/dshills/algostep-go/viz/step"
	"github.com/dshills/algostep-go/viz/traversal"
	"github.com/dshills/algostep-go/viz/tree"
)

// Algorithm is the closed set of algorithms a Visualizer can run.
type Algorithm int

const (
	Bubble Algorithm = iota
	Insertion
	Selection
	Merge
	Quick
	Heap
	BFS
	DFS
	Inorder
	Preorder
	Postorder
	Insert
	numAlgorithms
)

// Family groups algorithms by the dataset they consume.
type Family int

const (
	FamilySort Family = iota
	FamilyGraph
	FamilyTree
)

// Dataset is the input handed to a Producer.
type Dataset struct {
	// Values feeds sorts and tree algorithms.
	Values []float64
	// Graph and Start feed graph traversals.
	Graph *traversal.Adjacency
	Start string
}

// Producer runs an algorithm over ds, describing each state to rec.
type Producer func(ds Dataset, rec *step.Recorder)

type algorithmInfo struct {
	name       string
	family     Family
	produce    Producer
	pseudocode func() []string
}

func sortInfo(k sorting.Kind) algorithmInfo {
	return algorithmInfo{
		name:   k.String(),
		family: FamilySort,
		produce: func(ds Dataset, rec *step.Recorder) {
			sorting.Body(k, ds.Values)(rec)
		},
		pseudocode: func() []string { return sorting.Pseudocode(k) },
	}
}

func treeTraversal(name string, visit func(*tree.BST, *step.Recorder) []float64, listing func() []string) algorithmInfo {
	return algorithmInfo{
		name:   name,
		family: FamilyTree,
		produce: func(ds Dataset, rec *step.Recorder) {
			visit(tree.Build(ds.Values), rec)
		},
		pseudocode: listing,
	}
}

var algorithms = [numAlgorithms]algorithmInfo{
	Bubble:    sortInfo(sorting.Bubble),
	Insertion: sortInfo(sorting.Insertion),
	Selection: sortInfo(sorting.Selection),
	Merge:     sortInfo(sorting.Merge),
	Quick:     sortInfo(sorting.Quick),
	Heap:      sortInfo(sorting.Heap),
	BFS: {
		name:   "bfs",
		family: FamilyGraph,
		produce: func(ds Dataset, rec *step.Recorder) {
			traversal.BFS(ds.Graph, ds.Start, rec)
		},
		pseudocode: traversal.BFSPseudocode,
	},
	DFS: {
		name:   "dfs",
		family: FamilyGraph,
		produce: func(ds Dataset, rec *step.Recorder) {
			traversal.DFS(ds.Graph, ds.Start, rec)
		},
		pseudocode: traversal.DFSPseudocode,
	},
	Inorder:   treeTraversal("inorder", (*tree.BST).Inorder, tree.InorderPseudocode),
	Preorder:  treeTraversal("preorder", (*tree.BST).Preorder, tree.PreorderPseudocode),
	Postorder: treeTraversal("postorder", (*tree.BST).Postorder, tree.PostorderPseudocode),
	Insert: {
		name:   "insert",
		family: FamilyTree,
		produce: func(ds Dataset, rec *step.Recorder) {
			(&tree.BST{}).InsertAll(ds.Values, rec)
		},
		pseudocode: tree.InsertPseudocode,
	},
}

// Algorithms returns every algorithm in declaration order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, numAlgorithms)
	for a := Algorithm(0); a < numAlgorithms; a++ {
		out = append(out, a)
	}
	return out
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a >= 0 && a < numAlgorithms
}

func (a Algorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("viz.Algorithm(%d)", int(a))
	}
	return algorithms[a].name
}

// Family returns the kind of dataset a consumes.
func (a Algorithm) Family() Family {
	if !a.Valid() {
		return FamilySort
	}
	return algorithms[a].family
}

// Producer returns the step producer bound to a, or nil for an unknown
// algorithm.
func (a Algorithm) Producer() Producer {
	if !a.Valid() {
		return nil
	}
	return algorithms[a].produce
}

// Pseudocode returns the listing a's step annotations index into.
func (a Algorithm) Pseudocode() []string {
	if !a.Valid() {
		return nil
	}
	return algorithms[a].pseudocode()
}

// Origin returns the state shown before a's first step.
func (a Algorithm) Origin(ds Dataset) step.Snapshot {
	if a.Family() == FamilySort && a.Valid() {
		return step.Snapshot{Values: ds.Values}
	}
	return step.Snapshot{}
}

// ParseAlgorithm maps a name such as "bfs" to its Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a := Algorithm(0); a < numAlgorithms; a++ {
		if algorithms[a].name == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}
