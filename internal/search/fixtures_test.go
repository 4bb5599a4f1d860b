package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiplet/ast-search/internal/graph"
)

// ESTree documents shaped like acorn output (ecmaVersion 2022, module).

// function load(){ return this.x; }
const loadWithThis = `{
  "type": "Program", "sourceType": "module",
  "body": [{
    "type": "FunctionDeclaration",
    "id": {"type": "Identifier", "name": "load"},
    "params": [],
    "loc": {"start": {"line": 1, "column": 0}},
    "body": {"type": "BlockStatement", "body": [{
      "type": "ReturnStatement",
      "argument": {
        "type": "MemberExpression", "computed": false,
        "object": {"type": "ThisExpression"},
        "property": {"type": "Identifier", "name": "x"}
      }
    }]}
  }]
}`

// function load(){ return 1; }
const loadWithoutThis = `{
  "type": "Program", "sourceType": "module",
  "body": [{
    "type": "FunctionDeclaration",
    "id": {"type": "Identifier", "name": "load"},
    "params": [],
    "body": {"type": "BlockStatement", "body": [{
      "type": "ReturnStatement",
      "argument": {"type": "Literal", "value": 1, "raw": "1"}
    }]}
  }]
}`

// ({ setup(){ this.init(); } })
const setupMethod = `{
  "type": "Program", "sourceType": "module",
  "body": [{
    "type": "ExpressionStatement",
    "expression": {
      "type": "ObjectExpression",
      "properties": [{
        "type": "Property", "method": true, "shorthand": false, "computed": false, "kind": "init",
        "key": {"type": "Identifier", "name": "setup"},
        "value": {
          "type": "FunctionExpression", "id": null, "params": [],
          "body": {"type": "BlockStatement", "body": [{
            "type": "ExpressionStatement",
            "expression": {
              "type": "CallExpression", "arguments": [],
              "callee": {
                "type": "MemberExpression", "computed": false,
                "object": {"type": "ThisExpression"},
                "property": {"type": "Identifier", "name": "init"}
              }
            }
          }]}
        }
      }]
    }
  }]
}`

// function load(){ this.a = 1; }
// const load = () => { return this; };
// ({ load(){ return 1; } })
const threeLoads = `{
  "type": "Program", "sourceType": "module",
  "body": [
    {
      "type": "FunctionDeclaration",
      "id": {"type": "Identifier", "name": "load"},
      "params": [],
      "body": {"type": "BlockStatement", "body": [{
        "type": "ExpressionStatement",
        "expression": {
          "type": "AssignmentExpression", "operator": "=",
          "left": {"type": "MemberExpression", "object": {"type": "ThisExpression"}, "property": {"type": "Identifier", "name": "a"}},
          "right": {"type": "Literal", "value": 1}
        }
      }]}
    },
    {
      "type": "VariableDeclaration", "kind": "const",
      "declarations": [{
        "type": "VariableDeclarator",
        "id": {"type": "Identifier", "name": "load"},
        "init": {
          "type": "ArrowFunctionExpression", "params": [],
          "body": {"type": "BlockStatement", "body": [{
            "type": "ReturnStatement", "argument": {"type": "ThisExpression"}
          }]}
        }
      }]
    },
    {
      "type": "ExpressionStatement",
      "expression": {
        "type": "ObjectExpression",
        "properties": [{
          "type": "Property", "method": true, "kind": "init",
          "key": {"type": "Identifier", "name": "load"},
          "value": {
            "type": "FunctionExpression", "params": [],
            "body": {"type": "BlockStatement", "body": [{
              "type": "ReturnStatement", "argument": {"type": "Literal", "value": 1}
            }]}
          }
        }]
      }
    }
  ]
}`

// load(function(){ this.ready(); }); helper.load();
const callSite = `{
  "type": "Program",
  "body": [
    {
      "type": "ExpressionStatement",
      "expression": {
        "type": "CallExpression",
        "callee": {"type": "Identifier", "name": "load"},
        "arguments": [{
          "type": "FunctionExpression", "params": [],
          "body": {"type": "BlockStatement", "body": [{
            "type": "ExpressionStatement",
            "expression": {
              "type": "CallExpression", "arguments": [],
              "callee": {"type": "MemberExpression", "object": {"type": "ThisExpression"}, "property": {"type": "Identifier", "name": "ready"}}
            }
          }]}
        }]
      }
    },
    {
      "type": "ExpressionStatement",
      "expression": {
        "type": "CallExpression", "arguments": [],
        "callee": {"type": "MemberExpression", "object": {"type": "Identifier", "name": "helper"}, "property": {"type": "Identifier", "name": "load"}}
      }
    }
  ]
}`

func mustTree(t *testing.T, src string) *graph.Tree {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return graph.FromValue(v)
}

// countingMatcher wraps m and records how often each node was inspected.
type countingMatcher struct {
	m     Matcher
	calls map[*graph.Node]int
	total int
}

func newCountingMatcher(m Matcher) *countingMatcher {
	return &countingMatcher{m: m, calls: make(map[*graph.Node]int)}
}

func (c *countingMatcher) match(n *graph.Node, target string) bool {
	c.calls[n]++
	c.total++
	return c.m(n, target)
}
