package search

import (
	"fmt"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/graph"
)

// Hit is one anchor whose subtree contains the searched expression.
type Hit struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	AnchorType string `json:"anchor_type"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`

	Anchor *graph.Node `json:"-"`
}

func newHit(source string, target api.TargetKind, name, kind string, anchor *graph.Node) Hit {
	h := Hit{
		Source:     source,
		Target:     target.String(),
		Name:       name,
		Expression: kind,
		AnchorType: anchor.Type,
		Anchor:     anchor,
	}
	if line, col, ok := anchor.Position(); ok {
		h.Line = line
		h.Column = col
	}
	return h
}

// Location renders the hit as "source:line:column", or just the source when
// the anchor carries no position.
func (h Hit) Location() string {
	if h.Line == 0 {
		return h.Source
	}
	return fmt.Sprintf("%s:%d:%d", h.Source, h.Line, h.Column)
}

// Identity names an anchor in multi-match results. Anchors with equal
// identities collapse into one result.
type Identity func(anchor *graph.Node) string

// SourceIdentity names every anchor after its source, so a file is reported
// once however many anchors inside it match.
func SourceIdentity(source string) Identity {
	return func(*graph.Node) string { return source }
}

// LocationIdentity names anchors by source position, falling back to the
// node id for trees without location data.
func LocationIdentity(source string) Identity {
	return func(anchor *graph.Node) string {
		if line, col, ok := anchor.Position(); ok {
			return fmt.Sprintf("%s:%d:%d", source, line, col)
		}
		return fmt.Sprintf("%s#%d", source, anchor.ID)
	}
}
