package ingest

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/shiplet/ast-search/internal/graph"
)

// SelectRaw evaluates a JSONPath expression against the document's raw
// value.
func SelectRaw(doc *Document, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return x.Get(doc.Raw), nil
}

// Select is SelectRaw mapped onto the tree: it returns the nodes for the
// selected maps. A selected list stands for its elements, since lists carry
// no edges of their own. Selected scalars have no node and are dropped.
func Select(doc *Document, expr string) ([]*graph.Node, error) {
	values, err := SelectRaw(doc, expr)
	if err != nil {
		return nil, err
	}

	var nodes []*graph.Node
	seen := graph.NewNodeSet()
	for _, v := range values {
		n, err := doc.Tree.Lookup(v)
		if errors.Is(err, graph.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = appendRoots(nodes, seen, n)
	}
	return nodes, nil
}

func appendRoots(nodes []*graph.Node, seen *graph.NodeSet, n *graph.Node) []*graph.Node {
	switch n.Class {
	case graph.Sequence:
		for _, item := range n.Items {
			if item != nil {
				nodes = appendRoots(nodes, seen, item)
			}
		}
	case graph.Structured, graph.Mapping:
		if seen.Add(n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
