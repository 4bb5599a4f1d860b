package graph

import (
	"errors"
	"reflect"
	"slices"
	"sync"
)

var ErrNotFound = errors.New("node not found")

// SequenceFunc receives the record-shaped elements found while materializing
// a sequence. Sequences never get edges of their own; this is the only place
// their record elements are reported.
type SequenceFunc func(seq, elem *Node)

// Tree owns a classified syntax tree and the memoized adjacency derived from
// it. Node ids are dense, so per-node state lives in slices and bitmaps
// indexed by id instead of on the nodes.
type Tree struct {
	root  *Node
	nodes []*Node
	index map[valueKey]*Node // decoded value identity -> node (FromValue only)

	mu           sync.Mutex
	edges        [][]*Node
	materialized *NodeSet
	onSequence   SequenceFunc
}

// New adopts a hand-built node graph rooted at root, assigning ids in
// depth-first order. Nodes reachable through several parents keep a single
// identity.
func New(root *Node) *Tree {
	t := newTree()
	if root == nil {
		root = NewScalar(nil)
	}
	seen := make(map[*Node]bool)
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		t.register(n)
		if n.Class == Structured && n.Type == "" {
			n.Type, _ = n.Str(TypeKey)
		}
		for i := len(n.Items) - 1; i >= 0; i-- {
			stack = append(stack, n.Items[i])
		}
		for i := len(n.Fields) - 1; i >= 0; i-- {
			stack = append(stack, n.Fields[i].Value)
		}
	}
	t.root = root
	t.edges = make([][]*Node, len(t.nodes))
	return t
}

// FromValue classifies a decoded value (maps, slices and scalars as produced
// by JSON decoders) into a Tree. This is the only place classification runs;
// traversal works from the stored Class afterwards. Keys of keyed values are
// visited in sorted order so edge order is deterministic. A map or slice
// referenced from several places becomes one shared node.
func FromValue(v any) *Tree {
	if n, ok := v.(*Node); ok {
		return New(n)
	}
	t := newTree()
	t.index = make(map[valueKey]*Node)
	t.root = t.build(v)
	t.edges = make([][]*Node, len(t.nodes))
	return t
}

func newTree() *Tree {
	return &Tree{materialized: NewNodeSet()}
}

func (t *Tree) register(n *Node) {
	n.ID = uint32(len(t.nodes))
	t.nodes = append(t.nodes, n)
}

func (t *Tree) build(v any) *Node {
	key, keyed := keyOf(v)
	if keyed {
		if n, ok := t.index[key]; ok {
			return n
		}
	}

	n := &Node{Class: Classify(v)}
	t.register(n)
	if keyed {
		t.index[key] = n
	}

	switch n.Class {
	case Structured, Mapping:
		for _, e := range entries(v) {
			n.Fields = append(n.Fields, Field{Key: e.key, Value: t.build(e.value)})
		}
		if n.Class == Structured {
			n.Type, _ = n.Str(TypeKey)
		}
	case Sequence:
		for _, item := range items(v) {
			n.Items = append(n.Items, t.build(item))
		}
	default:
		n.Value = v
	}
	return n
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of distinct nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given id.
func (t *Tree) Node(id uint32) (*Node, error) {
	if int(id) >= len(t.nodes) {
		return nil, ErrNotFound
	}
	return t.nodes[id], nil
}

// Lookup maps a map or slice taken from the value given to FromValue back to
// its node, e.g. after selecting parts of that value with a JSONPath.
func (t *Tree) Lookup(v any) (*Node, error) {
	key, ok := keyOf(v)
	if !ok || t.index == nil {
		return nil, ErrNotFound
	}
	n, ok := t.index[key]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// OnSequenceNode installs the side channel for records met while
// materializing sequences.
func (t *Tree) OnSequenceNode(fn SequenceFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSequence = fn
}

// Materialize derives and caches n's outgoing edges. It is a no-op for nodes
// already materialized and for nodes that do not belong to t.
//
// For Structured and Mapping nodes every field except EdgesKey is inspected:
// a Sequence value contributes all of its items, a Structured value
// contributes itself, anything else contributes nothing. A Sequence gets no
// edges; its Structured items are reported to the OnSequenceNode callback.
func (t *Tree) Materialize(n *Node) {
	if !t.owns(n) {
		return
	}
	t.mu.Lock()
	if !t.materialized.Add(n) {
		t.mu.Unlock()
		return
	}

	var report []*Node
	switch n.Class {
	case Structured, Mapping:
		var out []*Node
		for _, f := range n.Fields {
			if f.Key == EdgesKey || f.Value == nil {
				continue
			}
			switch f.Value.Class {
			case Sequence:
				out = append(out, f.Value.Items...)
			case Structured:
				out = append(out, f.Value)
			}
		}
		t.edges[n.ID] = out
	case Sequence:
		for _, item := range n.Items {
			if item != nil && item.Class == Structured {
				report = append(report, item)
			}
		}
	}
	fn := t.onSequence
	t.mu.Unlock()

	if fn != nil {
		for _, item := range report {
			fn(n, item)
		}
	}
}

// Edges returns the memoized edges of n, or nil if n has not been
// materialized (or has none). The returned slice must not be modified.
func (t *Tree) Edges(n *Node) []*Node {
	if !t.owns(n) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.edges[n.ID]
}

// Materialized reports whether Materialize has run for n.
func (t *Tree) Materialized(n *Node) bool {
	if !t.owns(n) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.materialized.Contains(n)
}

func (t *Tree) owns(n *Node) bool {
	return n != nil && int(n.ID) < len(t.nodes) && t.nodes[n.ID] == n
}

// valueKey identifies a decoded map or slice by reference.
type valueKey struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

func keyOf(v any) (valueKey, bool) {
	if v == nil {
		return valueKey{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return valueKey{}, false
		}
		return valueKey{kind: reflect.Map, ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return valueKey{}, false
		}
		return valueKey{kind: reflect.Slice, ptr: rv.Pointer(), len: rv.Len()}, true
	}
	return valueKey{}, false
}

type entry struct {
	key   string
	value any
}

func entries(v any) []entry {
	var out []entry
	if m, ok := v.(map[string]any); ok {
		out = make([]entry, 0, len(m))
		for k, val := range m {
			out = append(out, entry{key: k, value: val})
		}
	} else {
		rv := reflect.ValueOf(v)
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() != reflect.String {
				continue
			}
			out = append(out, entry{key: k.String(), value: iter.Value().Interface()})
		}
	}
	slices.SortFunc(out, func(a, b entry) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return out
}

func items(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
