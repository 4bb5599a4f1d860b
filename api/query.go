package api

import (
	"errors"
	"fmt"
	"strings"
)

// Usage faults. These are reported before any traversal starts so callers can
// tell "nothing to search for" apart from "searched, not found".
var (
	ErrNoTarget           = errors.New("must provide either a function or a property to search")
	ErrConflictingTargets = errors.New("can only search within either a function or a property, but not both")
	ErrUnknownExpression  = errors.New("unknown expression kind")
)

// ExpressionKind is the discriminant tag of the expression searched for inside
// an anchor. The set is fixed.
type ExpressionKind string

const (
	ThisExpression  ExpressionKind = "ThisExpression"
	Super           ExpressionKind = "Super"
	AwaitExpression ExpressionKind = "AwaitExpression"
	YieldExpression ExpressionKind = "YieldExpression"
)

var expressionKinds = []ExpressionKind{ThisExpression, Super, AwaitExpression, YieldExpression}

// ExpressionKinds returns the supported expression kinds in display order.
func ExpressionKinds() []ExpressionKind {
	out := make([]ExpressionKind, len(expressionKinds))
	copy(out, expressionKinds)
	return out
}

// Valid reports whether k is one of the supported kinds.
func (k ExpressionKind) Valid() bool {
	for _, known := range expressionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// TargetKind says which construct anchors a query.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetFunction
	TargetProperty
)

func (k TargetKind) String() string {
	switch k {
	case TargetFunction:
		return "function"
	case TargetProperty:
		return "property"
	default:
		return "none"
	}
}

// Query is one search request: locate an anchor construct by name, then look
// for an expression kind inside it.
type Query struct {
	// Function names a function-like construct (declaration, named function
	// or arrow assigned to a variable, object method, or call site).
	Function string `json:"function,omitempty"`
	// Property names an object property construct.
	Property string `json:"property,omitempty"`
	// Expression is the kind searched for inside the anchor.
	Expression ExpressionKind `json:"expression"`
	// Multiple collects every matching function-like anchor instead of the
	// first one. Ignored for property queries.
	Multiple bool `json:"multiple,omitempty"`
}

// Target returns the anchor kind and name of the query.
func (q Query) Target() (TargetKind, string) {
	switch {
	case q.Function != "" && q.Property == "":
		return TargetFunction, q.Function
	case q.Property != "" && q.Function == "":
		return TargetProperty, q.Property
	default:
		return TargetNone, ""
	}
}

// Validate checks the exclusive-target rule and the expression kind.
func (q Query) Validate() error {
	if q.Function != "" && q.Property != "" {
		return ErrConflictingTargets
	}
	if q.Function == "" && q.Property == "" {
		return ErrNoTarget
	}
	if !q.Expression.Valid() {
		return fmt.Errorf("%w %q (choices: %s)", ErrUnknownExpression, q.Expression, joinKinds())
	}
	return nil
}

func (q Query) String() string {
	kind, name := q.Target()
	s := fmt.Sprintf("%s=%s expression=%s", kind, name, q.Expression)
	if q.Multiple && kind == TargetFunction {
		s += " multiple"
	}
	return s
}

func joinKinds() string {
	names := make([]string, len(expressionKinds))
	for i, k := range expressionKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
