// Package tree implements a binary search tree whose insertions and
// depth-first traversals are step producers.
//
// Traversals use explicit stacks and visit nodes in exactly the order of
// the textbook recursive definitions.
package tree

import (
	"strconv"
	"strings"

	"github.com/dshills/algostep-go/viz/step"
)

const (
	insertAttachLine   = 5
	inorderVisitLine   = 3
	preorderVisitLine  = 2
	postorderVisitLine = 4
)

var (
	insertListing = []string{
		"node = root",
		"while node is not empty",
		"  if v == node.value: return",
		"  node = v < node.value ? node.left : node.right",
		"attach v at node",
	}
	inorderListing = []string{
		"inorder(node)",
		"  inorder(node.left)",
		"  visit node",
		"  inorder(node.right)",
	}
	preorderListing = []string{
		"preorder(node)",
		"  visit node",
		"  preorder(node.left)",
		"  preorder(node.right)",
	}
	postorderListing = []string{
		"postorder(node)",
		"  postorder(node.left)",
		"  postorder(node.right)",
		"  visit node",
	}
)

// InsertPseudocode and its siblings return the listings that step
// annotations index into.
func InsertPseudocode() []string    { return clone(insertListing) }
func InorderPseudocode() []string   { return clone(inorderListing) }
func PreorderPseudocode() []string  { return clone(preorderListing) }
func PostorderPseudocode() []string { return clone(postorderListing) }

func clone(s []string) []string { return append([]string(nil), s...) }

type node struct {
	value       float64
	left, right *node
}

// BST is an unbalanced binary search tree of float64 values ordered by <.
// Duplicate values are ignored. The zero value is an empty tree.
//
// BST is not safe for concurrent use.
type BST struct {
	root *node
	size int
}

// Build inserts values in order into a new tree without recording steps.
func Build(values []float64) *BST {
	t := &BST{}
	for _, v := range values {
		t.Insert(v, nil)
	}
	return t
}

// Len returns the number of nodes.
func (t *BST) Len() int { return t.size }

// Insert adds v and reports whether a node was created. Smaller values go
// left and larger values go right; a duplicate creates no node and emits no
// step.
//
// The step for an insertion carries the root-to-new-node path in
// Snapshot.Values. The node is attached only once that step is committed,
// so a canceled insertion leaves the tree unchanged.
func (t *BST) Insert(v float64, rec *step.Recorder) bool {
	var (
		parent *node
		path   []float64
	)
	for cur := t.root; cur != nil; {
		if v == cur.value {
			return false
		}
		path = append(path, cur.value)
		parent = cur
		if v < cur.value {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	if !rec.Live() {
		return false
	}
	path = append(path, v)
	if !rec.Emit(step.Snapshot{Values: path, Node: format(v)}, step.Annotation{
		Level: len(path) - 1,
		Line:  insertAttachLine,
	}) {
		return false
	}

	n := &node{value: v}
	switch {
	case parent == nil:
		t.root = n
	case v < parent.value:
		parent.left = n
	default:
		parent.right = n
	}
	t.size++
	return true
}

// InsertAll inserts values in order, stopping early if rec halts. It returns
// the number of nodes created.
func (t *BST) InsertAll(values []float64, rec *step.Recorder) int {
	added := 0
	for _, v := range values {
		if !rec.Live() {
			break
		}
		if t.Insert(v, rec) {
			added++
		}
	}
	return added
}

type frame struct {
	n        *node
	depth    int
	expanded bool
}

// visitor accumulates a traversal result, committing each value only after
// its step was accepted.
type visitor struct {
	rec  *step.Recorder
	line int
	out  []float64
}

func (vis *visitor) visit(n *node, depth int) bool {
	next := append(vis.out[:len(vis.out):len(vis.out)], n.value)
	if !vis.rec.Emit(step.Snapshot{Values: next, Node: format(n.value)}, step.Annotation{
		Level: depth,
		Line:  vis.line,
	}) {
		return false
	}
	vis.out = next
	return true
}

// Inorder visits left subtree, node, right subtree. The result is ascending.
func (t *BST) Inorder(rec *step.Recorder) []float64 {
	vis := &visitor{rec: rec, line: inorderVisitLine, out: []float64{}}
	var stack []frame
	cur, depth := t.root, 0
	for cur != nil || len(stack) > 0 {
		for cur != nil {
			stack = append(stack, frame{n: cur, depth: depth})
			cur, depth = cur.left, depth+1
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !vis.visit(f.n, f.depth) {
			break
		}
		cur, depth = f.n.right, f.depth+1
	}
	return vis.out
}

// Preorder visits node, left subtree, right subtree.
func (t *BST) Preorder(rec *step.Recorder) []float64 {
	vis := &visitor{rec: rec, line: preorderVisitLine, out: []float64{}}
	if t.root == nil {
		return vis.out
	}
	stack := []frame{{n: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !vis.visit(f.n, f.depth) {
			break
		}
		if f.n.right != nil {
			stack = append(stack, frame{n: f.n.right, depth: f.depth + 1})
		}
		if f.n.left != nil {
			stack = append(stack, frame{n: f.n.left, depth: f.depth + 1})
		}
	}
	return vis.out
}

// Postorder visits left subtree, right subtree, node.
func (t *BST) Postorder(rec *step.Recorder) []float64 {
	vis := &visitor{rec: rec, line: postorderVisitLine, out: []float64{}}
	if t.root == nil {
		return vis.out
	}
	stack := []frame{{n: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.expanded {
			if !vis.visit(f.n, f.depth) {
				break
			}
			continue
		}
		stack = append(stack, frame{n: f.n, depth: f.depth, expanded: true})
		if f.n.right != nil {
			stack = append(stack, frame{n: f.n.right, depth: f.depth + 1})
		}
		if f.n.left != nil {
			stack = append(stack, frame{n: f.n.left, depth: f.depth + 1})
		}
	}
	return vis.out
}

// Height returns the number of nodes on the longest root-to-leaf path. An
// empty tree has height 0.
func (t *BST) Height() int {
	if t.root == nil {
		return 0
	}
	h := 0
	stack := []frame{{n: t.root, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h = max(h, f.depth)
		if f.n.left != nil {
			stack = append(stack, frame{n: f.n.left, depth: f.depth + 1})
		}
		if f.n.right != nil {
			stack = append(stack, frame{n: f.n.right, depth: f.depth + 1})
		}
	}
	return h
}

// Shape classifies a tree. The flags are independent; a tree may be any
// combination of them.
type Shape struct {
	// Full: every node has zero or two children.
	Full bool
	// Complete: every level but the last is filled and the last is filled
	// from the left.
	Complete bool
	// Balanced: at every node the subtree heights differ by at most one.
	Balanced bool
}

// String joins the names of the set flags with " | ", for example
// "Full Binary Tree | Balanced Binary Tree".
func (s Shape) String() string {
	var parts []string
	if s.Full {
		parts = append(parts, "Full Binary Tree")
	}
	if s.Complete {
		parts = append(parts, "Complete Binary Tree")
	}
	if s.Balanced {
		parts = append(parts, "Balanced Binary Tree")
	}
	return strings.Join(parts, " | ")
}

// Shape classifies the tree. An empty tree is vacuously all three.
func (t *BST) Shape() Shape {
	return Shape{
		Full:     t.full(),
		Complete: t.complete(),
		Balanced: t.balanced(),
	}
}

func (t *BST) full() bool {
	stack := []*node{}
	if t.root != nil {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if (n.left == nil) != (n.right == nil) {
			return false
		}
		if n.left != nil {
			stack = append(stack, n.left, n.right)
		}
	}
	return true
}

// complete walks level order; once an empty slot is seen no node may follow.
func (t *BST) complete() bool {
	queue := []*node{t.root}
	gap := false
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			gap = true
			continue
		}
		if gap {
			return false
		}
		queue = append(queue, n.left, n.right)
	}
	return true
}

// balanced computes subtree heights bottom-up with a post-order stack.
func (t *BST) balanced() bool {
	if t.root == nil {
		return true
	}
	heights := make(map[*node]int)
	stack := []frame{{n: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f.expanded {
			stack = append(stack, frame{n: f.n, expanded: true})
			if f.n.right != nil {
				stack = append(stack, frame{n: f.n.right})
			}
			if f.n.left != nil {
				stack = append(stack, frame{n: f.n.left})
			}
			continue
		}
		l, r := heights[f.n.left], heights[f.n.right]
		if l-r > 1 || r-l > 1 {
			return false
		}
		heights[f.n] = 1 + max(l, r)
	}
	return true
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
