package search

import "github.com/shiplet/ast-search/internal/graph"

// ESTree kinds the matchers key off.
const (
	kindArrowFunctionExpression = "ArrowFunctionExpression"
	kindCallExpression          = "CallExpression"
	kindFunctionDeclaration     = "FunctionDeclaration"
	kindFunctionExpression      = "FunctionExpression"
	kindProperty                = "Property"
	kindVariableDeclarator      = "VariableDeclarator"
)

// Matcher recognizes a node without side effects. A node lacking a field
// the matcher needs simply does not match.
type Matcher func(n *graph.Node, target string) bool

// Expand composes m with t's materializer: matched nodes are returned as-is,
// rejected nodes are materialized so their children join the frontier.
func Expand(t *graph.Tree, m Matcher) Predicate {
	return func(n *graph.Node, target string) *graph.Node {
		if m(n, target) {
			return n
		}
		t.Materialize(n)
		return nil
	}
}

// FunctionLike matches, in order: an object method whose key is name; a
// variable declarator binding name to a function or arrow expression; a
// function declaration named name; a call whose callee is the identifier
// name. The last case matches call sites, so inline callbacks passed to a
// named function can be searched.
func FunctionLike(n *graph.Node, name string) bool {
	if name == "" || n == nil || n.Class != graph.Structured {
		return false
	}
	switch n.Type {
	case kindProperty:
		return n.Flag("method") && n.Get("key").Name() == name
	case kindVariableDeclarator:
		init := n.Get("init")
		return (init.Is(kindFunctionExpression) || init.Is(kindArrowFunctionExpression)) &&
			n.Get("id").Name() == name
	case kindFunctionDeclaration:
		return n.Get("id").Name() == name
	case kindCallExpression:
		return n.Get("callee").Name() == name
	}
	return false
}

// Property matches any property whose key is name, method or not.
func Property(n *graph.Node, name string) bool {
	return name != "" && n.Is(kindProperty) && n.Get("key").Name() == name
}

// Expression matches nodes whose discriminant kind equals kind.
func Expression(n *graph.Node, kind string) bool {
	return kind != "" && n.Is(kind)
}
