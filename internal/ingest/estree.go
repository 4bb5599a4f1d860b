package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"

	"github.com/shiplet/ast-search/internal/graph"
)

// ErrNotESTree is returned for JSON documents whose root is not a record.
var ErrNotESTree = errors.New("root is not an ESTree node")

// ParseESTree decodes a serialized ESTree document, such as acorn output or
// a tree written by Dump.
func ParseESTree(data []byte) (map[string]any, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode estree: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok || graph.Classify(m) != graph.Structured {
		return nil, ErrNotESTree
	}
	return m, nil
}

// Dump writes v as indented JSON with sorted keys.
func Dump(w io.Writer, v any) error {
	out := oj.JSON(v, &ojg.Options{Indent: 2, Sort: true})
	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}
