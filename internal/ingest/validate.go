package ingest

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxError locates a parse failure in the host file. Line is 1-based and
// Column 0-based, matching ESTree locations.
type SyntaxError struct {
	Path    string
	Line    int
	Column  int
	Message string
	// Count is the total number of ERROR/MISSING nodes in the tree.
	Count int
}

func (e *SyntaxError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("%s:%d:%d: %s (%d errors)", e.Path, e.Line, e.Column, e.Message, e.Count)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// checkSyntax returns a *SyntaxError for the first ERROR or MISSING node under
// root, or nil when the parse was clean.
func checkSyntax(root *sitter.Node, src Source) error {
	if root == nil || !root.HasError() {
		return nil
	}
	var errs []*sitter.Node
	collectErrors(root, &errs)

	first := findFirstError(root)
	if first == nil {
		return &SyntaxError{Path: src.Path, Line: src.Line + 1, Message: "syntax tree contains errors", Count: len(errs)}
	}
	msg := "syntax error"
	if first.IsMissing() {
		msg = fmt.Sprintf("missing %q", first.Type())
	}
	p := first.StartPoint()
	return &SyntaxError{
		Path:    src.Path,
		Line:    int(p.Row) + src.Line + 1,
		Column:  int(p.Column),
		Message: msg,
		Count:   len(errs),
	}
}

func findFirstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := findFirstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func collectErrors(n *sitter.Node, errs *[]*sitter.Node) {
	if n.IsError() || n.IsMissing() {
		*errs = append(*errs, n)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.HasError() || child.IsError() || child.IsMissing() {
			collectErrors(child, errs)
		}
	}
}
