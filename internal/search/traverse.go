package search

import "github.com/shiplet/ast-search/internal/graph"

// Predicate inspects one node for target and returns the node it matched, or
// nil. Predicates built with Expand materialize every node they reject, which
// is what gives the traversal edges to follow.
type Predicate func(n *graph.Node, target string) *graph.Node

// BFS walks breadth-first from root and returns the first node p matches.
func BFS(t *graph.Tree, root *graph.Node, target string, p Predicate) *graph.Node {
	return first(walk(t, root, target, p, &queue{}, false))
}

// DFS walks depth-first from root and returns the first node p matches.
func DFS(t *graph.Tree, root *graph.Node, target string, p Predicate) *graph.Node {
	return first(walk(t, root, target, p, &stack{}, false))
}

// DFSAll walks depth-first from root to exhaustion and returns every distinct
// node p matches, in discovery order. Matched nodes are expanded too, so
// matches nested inside other matches are found.
func DFSAll(t *graph.Tree, root *graph.Node, target string, p Predicate) []*graph.Node {
	return walk(t, root, target, p, &stack{}, true)
}

// BFSAll is DFSAll with breadth-first order. Both reach the same set.
func BFSAll(t *graph.Tree, root *graph.Node, target string, p Predicate) []*graph.Node {
	return walk(t, root, target, p, &queue{}, true)
}

// walk is the single traversal loop. The visited set is scoped to this call
// and nodes are marked when they enter the frontier, so each reachable node
// is handed to p exactly once even when it has several parents.
func walk(t *graph.Tree, root *graph.Node, target string, p Predicate, f frontier, all bool) []*graph.Node {
	if root == nil {
		return nil
	}

	visited := graph.NewNodeSet()
	visited.Add(root)
	f.push(root)

	var (
		found   []*graph.Node
		matched *graph.NodeSet
	)
	if all {
		matched = graph.NewNodeSet()
	}
	for f.len() > 0 {
		n := f.pop()

		if m := p(n, target); m != nil {
			if !all {
				return []*graph.Node{m}
			}
			if matched.Add(m) {
				found = append(found, m)
			}
			t.Materialize(n)
		}

		for _, child := range t.Edges(n) {
			if child != nil && visited.Add(child) {
				f.push(child)
			}
		}
	}
	return found
}

func first(nodes []*graph.Node) *graph.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

type frontier interface {
	push(n *graph.Node)
	pop() *graph.Node
	len() int
}

// queue is FIFO.
type queue struct {
	items []*graph.Node
	head  int
}

func (q *queue) push(n *graph.Node) { q.items = append(q.items, n) }

func (q *queue) pop() *graph.Node {
	n := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return n
}

func (q *queue) len() int { return len(q.items) - q.head }

// stack is LIFO.
type stack struct {
	items []*graph.Node
}

func (s *stack) push(n *graph.Node) { s.items = append(s.items, n) }

func (s *stack) pop() *graph.Node {
	last := len(s.items) - 1
	n := s.items[last]
	s.items[last] = nil
	s.items = s.items[:last]
	return n
}

func (s *stack) len() int { return len(s.items) }
