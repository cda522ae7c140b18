// Package traversal implements breadth-first and depth-first search over a
// small graph as step producers.
//
// The graph is an Adjacency built from a node list and an edge list. Neighbor
// order is the order edges were inserted for each node, never sorted, so a
// fixed edge history always yields the same visiting order.
//
// Both searches report one step per visited node. The snapshot carries the
// visited node and the visiting order so far; the annotation carries the
// node's level (BFS) or depth (DFS) and the edge that discovered it.
// Cancellation leaves the returned result exactly as of the last committed
// step.
package traversal

import "fmt"

// Edge is a connection between two node ids as entered by the caller.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// EdgeKey identifies a traversed edge. For undirected graphs From is the
// lexicographically smaller id, so both directions map to the same key.
type EdgeKey struct {
	From string
	To   string
}

// String renders the key as "from-to".
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s-%s", k.From, k.To)
}

// Adjacency is an insertion-ordered adjacency list.
//
// Adjacency is not safe for concurrent mutation; it is built once and then
// only read by the searches.
type Adjacency struct {
	directed bool
	order    []string
	arcs     map[string][]string
}

// NewAdjacency builds an adjacency list. Directed edges contribute one arc
// from→to; undirected edges contribute arcs both ways. Edges that name a node
// missing from nodes register it. Duplicate node ids are ignored.
func NewAdjacency(nodes []string, edges []Edge, directed bool) *Adjacency {
	adj := &Adjacency{
		directed: directed,
		order:    make([]string, 0, len(nodes)),
		arcs:     make(map[string][]string, len(nodes)),
	}
	for _, id := range nodes {
		adj.AddNode(id)
	}
	for _, e := range edges {
		adj.AddEdge(e.From, e.To)
	}
	return adj
}

// AddNode registers id. It is a no-op if id already exists.
func (a *Adjacency) AddNode(id string) {
	if _, ok := a.arcs[id]; ok {
		return
	}
	a.arcs[id] = nil
	a.order = append(a.order, id)
}

// AddEdge appends an edge, registering unknown endpoints first.
func (a *Adjacency) AddEdge(from, to string) {
	a.AddNode(from)
	a.AddNode(to)
	a.arcs[from] = append(a.arcs[from], to)
	if !a.directed {
		a.arcs[to] = append(a.arcs[to], from)
	}
}

// Directed reports whether edges are one-way.
func (a *Adjacency) Directed() bool { return a.directed }

// Has reports whether id is a registered node.
func (a *Adjacency) Has(id string) bool {
	_, ok := a.arcs[id]
	return ok
}

// Nodes returns node ids in registration order.
func (a *Adjacency) Nodes() []string {
	return append([]string(nil), a.order...)
}

// Neighbors returns the neighbors of id in edge-insertion order.
func (a *Adjacency) Neighbors(id string) []string {
	return append([]string(nil), a.arcs[id]...)
}

// Key returns the edge key used for ranking the edge from→to.
func (a *Adjacency) Key(from, to string) EdgeKey {
	if !a.directed && to < from {
		from, to = to, from
	}
	return EdgeKey{From: from, To: to}
}
