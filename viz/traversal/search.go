package traversal

import "github.com/dshills/algostep-go/viz/step"

const (
	bfsVisitLine = 4
	dfsVisitLine = 3
)

var (
	bfsListing = []string{
		"mark start; level[start] = 0; enqueue start",
		"while queue not empty",
		"  node = dequeue",
		"  visit node",
		"  for each neighbor of node in edge order",
		"    if neighbor not marked",
		"      mark neighbor; level[neighbor] = level[node]+1",
		"      rank edge (node, neighbor); enqueue neighbor",
	}
	dfsListing = []string{
		"dfs(node)",
		"  mark node",
		"  visit node",
		"  for each neighbor of node in edge order",
		"    if neighbor not marked: dfs(neighbor)",
	}
)

// BFSPseudocode returns the listing BFS step annotations index into.
func BFSPseudocode() []string { return append([]string(nil), bfsListing...) }

// DFSPseudocode returns the listing DFS step annotations index into.
func DFSPseudocode() []string { return append([]string(nil), dfsListing...) }

// Result is the outcome of a breadth-first search.
type Result struct {
	// Order lists nodes in visiting order.
	Order []string

	// Level maps each visited node to its distance in edges from start.
	Level map[string]int

	// EdgeOrder maps each discovery edge to its rank, counting from 1 in the
	// order the edges were discovered.
	EdgeOrder map[EdgeKey]int
}

type queueItem struct {
	id     string
	level  int
	via    EdgeKey
	rank   int
	hasVia bool
}

// BFS runs a breadth-first search from start, reporting each visit to rec.
//
// start is marked as soon as it is enqueued, with level 0. Every neighbor
// discovered for the first time gets level[parent]+1 and the next edge rank.
// Level and rank are committed to the result when the node is visited, so a
// canceled search returns exactly what its committed steps showed.
//
// An unknown start yields an empty result. rec may be nil.
func BFS(adj *Adjacency, start string, rec *step.Recorder) *Result {
	res := &Result{
		Order:     []string{},
		Level:     make(map[string]int),
		EdgeOrder: make(map[EdgeKey]int),
	}
	if adj == nil || !adj.Has(start) {
		return res
	}

	visited := map[string]bool{start: true}
	queue := []queueItem{{id: start}}
	rank := 1
	for len(queue) > 0 {
		if !rec.Live() {
			break
		}
		item := queue[0]
		queue = queue[1:]

		order := append(res.Order[:len(res.Order):len(res.Order)], item.id)
		ann := step.Annotation{Level: item.level, Line: bfsVisitLine}
		if item.hasVia {
			ann.Edge = item.via.String()
		}
		if !rec.Emit(step.Snapshot{Node: item.id, Order: order}, ann) {
			break
		}
		res.Order = order
		res.Level[item.id] = item.level
		if item.hasVia {
			res.EdgeOrder[item.via] = item.rank
		}

		for _, nbr := range adj.arcs[item.id] {
			if visited[nbr] {
				continue
			}
			visited[nbr] = true
			queue = append(queue, queueItem{
				id:     nbr,
				level:  item.level + 1,
				via:    adj.Key(item.id, nbr),
				rank:   rank,
				hasVia: true,
			})
			rank++
		}
	}
	return res
}

type dfsFrame struct {
	id    string
	depth int
	next  int
}

// DFS runs a preorder depth-first search from start and returns the visiting
// order. A node is visited and marked, then each unmarked neighbor is
// explored in adjacency order. An explicit frame stack replaces recursion;
// the visiting order is the same.
//
// An unknown start yields an empty order. rec may be nil.
func DFS(adj *Adjacency, start string, rec *step.Recorder) []string {
	order := []string{}
	if adj == nil || !adj.Has(start) {
		return order
	}
	visited := make(map[string]bool)

	visit := func(id string, depth int, via string) bool {
		next := append(order[:len(order):len(order)], id)
		if !rec.Emit(step.Snapshot{Node: id, Order: next}, step.Annotation{
			Level: depth,
			Edge:  via,
			Line:  dfsVisitLine,
		}) {
			return false
		}
		order = next
		visited[id] = true
		return true
	}

	if !visit(start, 0, "") {
		return order
	}
	stack := []dfsFrame{{id: start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		nbrs := adj.arcs[top.id]
		if top.next >= len(nbrs) {
			stack = stack[:len(stack)-1]
			continue
		}
		nbr := nbrs[top.next]
		top.next++
		if visited[nbr] {
			continue
		}
		depth := top.depth + 1
		if !visit(nbr, depth, adj.Key(top.id, nbr).String()) {
			return order
		}
		stack = append(stack, dfsFrame{id: nbr, depth: depth})
	}
	return order
}

// BFSBody binds BFS to a graph and start node as a step producer.
func BFSBody(adj *Adjacency, start string) step.Body {
	return func(rec *step.Recorder) { BFS(adj, start, rec) }
}

// DFSBody binds DFS to a graph and start node as a step producer.
func DFSBody(adj *Adjacency, start string) step.Body {
	return func(rec *step.Recorder) { DFS(adj, start, rec) }
}
