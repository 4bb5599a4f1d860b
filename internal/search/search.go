package search

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/graph"
)

// Searcher answers anchor/expression queries over one tree. Its traversals
// share the tree's memoized edges; each call owns its own visited set.
type Searcher struct {
	tree       *graph.Tree
	root       *graph.Node
	function   Matcher
	property   Matcher
	expression Matcher
	logger     *slog.Logger
}

type Option func(*Searcher)

// WithRoot restricts anchor searches to the subtree under root.
func WithRoot(root *graph.Node) Option {
	return func(s *Searcher) {
		if root != nil {
			s.root = root
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExpressionMatcher replaces the matcher used inside anchors.
func WithExpressionMatcher(m Matcher) Option {
	return func(s *Searcher) {
		if m != nil {
			s.expression = m
		}
	}
}

func NewSearcher(t *graph.Tree, opts ...Option) *Searcher {
	s := &Searcher{
		tree:       t,
		root:       t.Root(),
		function:   FunctionLike,
		property:   Property,
		expression: Expression,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FunctionAnchor returns the first function-like construct named name in
// depth-first order, or nil.
func (s *Searcher) FunctionAnchor(name string) *graph.Node {
	return DFS(s.tree, s.root, name, Expand(s.tree, s.function))
}

// FunctionAnchors returns every function-like construct named name.
func (s *Searcher) FunctionAnchors(name string) []*graph.Node {
	return DFSAll(s.tree, s.root, name, Expand(s.tree, s.function))
}

// PropertyAnchor returns the first property named name in breadth-first
// order, or nil.
func (s *Searcher) PropertyAnchor(name string) *graph.Node {
	return BFS(s.tree, s.root, name, Expand(s.tree, s.property))
}

// Contains reports whether an expression of kind occurs in anchor's subtree,
// anchor included.
func (s *Searcher) Contains(anchor *graph.Node, kind string) bool {
	if anchor == nil {
		return false
	}
	return BFS(s.tree, anchor, kind, Expand(s.tree, s.expression)) != nil
}

// FunctionForExpression locates the first function-like construct named
// name and reports whether kind occurs inside it. A missing anchor is a
// plain false.
func (s *Searcher) FunctionForExpression(name, kind string) bool {
	anchor := s.FunctionAnchor(name)
	if anchor == nil {
		s.logger.Debug("function not found", slog.String("name", name))
		return false
	}
	return s.Contains(anchor, kind)
}

// PropertyForExpression is FunctionForExpression for property anchors.
func (s *Searcher) PropertyForExpression(name, kind string) bool {
	anchor := s.PropertyAnchor(name)
	if anchor == nil {
		s.logger.Debug("property not found", slog.String("name", name))
		return false
	}
	return s.Contains(anchor, kind)
}

// AllFunctionsForExpression checks every function-like construct named name
// and returns the distinct identities of those containing kind, sorted.
func (s *Searcher) AllFunctionsForExpression(name, kind string, id Identity) []string {
	set := make(map[string]struct{})
	for _, anchor := range s.FunctionAnchors(name) {
		if s.Contains(anchor, kind) {
			set[id(anchor)] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Run validates q and executes it, attributing hits to source. Usage faults
// come back as errors; an absent anchor or expression yields no hits.
func (s *Searcher) Run(q api.Query, source string) ([]Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	kind := string(q.Expression)
	target, name := q.Target()

	var anchors []*graph.Node
	switch target {
	case api.TargetFunction:
		if q.Multiple {
			anchors = s.FunctionAnchors(name)
		} else if a := s.FunctionAnchor(name); a != nil {
			anchors = []*graph.Node{a}
		}
	case api.TargetProperty:
		if a := s.PropertyAnchor(name); a != nil {
			anchors = []*graph.Node{a}
		}
	default:
		return nil, fmt.Errorf("unsupported target %s", target)
	}

	if len(anchors) == 0 {
		s.logger.Debug("anchor not found",
			slog.String("source", source),
			slog.String("target", target.String()),
			slog.String("name", name),
		)
		return nil, nil
	}

	var hits []Hit
	for _, anchor := range anchors {
		if !s.Contains(anchor, kind) {
			continue
		}
		hits = append(hits, newHit(source, target, name, kind, anchor))
	}
	s.logger.Debug("search finished",
		slog.String("source", source),
		slog.String("query", q.String()),
		slog.Int("anchors", len(anchors)),
		slog.Int("hits", len(hits)),
	)
	return hits, nil
}
