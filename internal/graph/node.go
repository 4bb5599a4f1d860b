// Package graph models an externally parsed syntax tree as a lazily
// materialized graph. Elements are classified once when the tree is built;
// outgoing edges are derived on demand from a node's fields and memoized in a
// table owned by the Tree, leaving the nodes themselves untouched.
package graph

import (
	"fmt"
	"reflect"
)

const (
	// TypeKey is the field holding a record's discriminant kind.
	TypeKey = "type"
	// EdgesKey is never followed when deriving edges. Trees dumped by older
	// tools may still carry an inline edge list under this name.
	EdgesKey = "edges"
)

// Class is the structural category of a tree element.
type Class uint8

const (
	Scalar     Class = iota // contributes no edges
	Structured              // a parser node: a record with a discriminant kind
	Mapping                 // any other keyed collection
	Sequence                // an ordered collection
)

func (c Class) String() string {
	switch c {
	case Structured:
		return "structured"
	case Mapping:
		return "mapping"
	case Sequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Classify inspects a decoded value. Records are string-keyed maps carrying a
// non-empty string "type" field; nil and anything unrecognised is Scalar.
func Classify(v any) Class {
	switch x := v.(type) {
	case nil:
		return Scalar
	case map[string]any:
		if kind, ok := x[TypeKey].(string); ok && kind != "" {
			return Structured
		}
		return Mapping
	case []any:
		return Sequence
	case string, []byte:
		return Scalar
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			kind := rv.MapIndex(reflect.ValueOf(TypeKey).Convert(rv.Type().Key()))
			if kind.IsValid() {
				if s, ok := kind.Interface().(string); ok && s != "" {
					return Structured
				}
			}
		}
		return Mapping
	case reflect.Slice, reflect.Array:
		return Sequence
	}
	return Scalar
}

// Field is one keyed member of a Structured or Mapping node.
type Field struct {
	Key   string
	Value *Node
}

// Node is one classified element of the tree. Which members are populated
// depends on Class: Fields for Structured and Mapping, Items for Sequence,
// Value for Scalar. Type is set for Structured nodes only.
type Node struct {
	ID     uint32
	Class  Class
	Type   string
	Fields []Field
	Items  []*Node
	Value  any
}

// NewRecord builds a Structured node of the given kind. The kind is also
// stored as the "type" field so the node round-trips like decoded input.
func NewRecord(kind string, fields ...Field) *Node {
	all := make([]Field, 0, len(fields)+1)
	all = append(all, Field{Key: TypeKey, Value: NewScalar(kind)})
	all = append(all, fields...)
	return &Node{Class: Structured, Type: kind, Fields: all}
}

// NewMapping builds a plain keyed node.
func NewMapping(fields ...Field) *Node {
	return &Node{Class: Mapping, Fields: fields}
}

// NewSequence builds an ordered node.
func NewSequence(items ...*Node) *Node {
	return &Node{Class: Sequence, Items: items}
}

// NewScalar wraps a leaf value.
func NewScalar(v any) *Node {
	return &Node{Class: Scalar, Value: v}
}

// F is shorthand for a Field literal.
func F(key string, v *Node) Field {
	return Field{Key: key, Value: v}
}

// Get returns the value of the named field, or nil when n is nil, is not
// keyed, or lacks the field.
func (n *Node) Get(key string) *Node {
	if n == nil {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Str returns a string-valued scalar field.
func (n *Node) Str(key string) (string, bool) {
	v := n.Get(key)
	if v == nil || v.Class != Scalar {
		return "", false
	}
	s, ok := v.Value.(string)
	return s, ok
}

// Flag reports whether a boolean scalar field is present and true.
func (n *Node) Flag(key string) bool {
	v := n.Get(key)
	if v == nil || v.Class != Scalar {
		return false
	}
	b, ok := v.Value.(bool)
	return ok && b
}

// Int returns an integral scalar field. Decoders disagree on number types,
// so int, int64 and float64 are all accepted.
func (n *Node) Int(key string) (int, bool) {
	v := n.Get(key)
	if v == nil || v.Class != Scalar {
		return 0, false
	}
	switch x := v.Value.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint32:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}

// Is reports whether n is a Structured node of the given kind.
func (n *Node) Is(kind string) bool {
	return n != nil && n.Class == Structured && n.Type == kind
}

// Name returns the "name" of an identifier-like node, or "".
func (n *Node) Name() string {
	s, _ := n.Str("name")
	return s
}

// Position returns the 1-based line and 0-based column from the node's
// "loc.start", as written by ESTree parsers with location tracking.
func (n *Node) Position() (line, column int, ok bool) {
	start := n.Get("loc").Get("start")
	line, okLine := start.Int("line")
	column, okCol := start.Int("column")
	if !okLine || !okCol {
		return 0, 0, false
	}
	return line, column, true
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Class {
	case Structured:
		if name := n.Name(); name != "" {
			return fmt.Sprintf("%s(%s)#%d", n.Type, name, n.ID)
		}
		return fmt.Sprintf("%s#%d", n.Type, n.ID)
	case Scalar:
		return fmt.Sprintf("%v#%d", n.Value, n.ID)
	default:
		return fmt.Sprintf("%s#%d", n.Class, n.ID)
	}
}
