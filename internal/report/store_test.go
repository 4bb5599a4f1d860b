package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/search"
)

func TestStoreSaveAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hits.db")

	s, err := Open(path)
	require.NoError(t, err)

	q := api.Query{Function: "load", Expression: api.ThisExpression, Multiple: true}
	run1, err := s.Save(ctx, q, []search.Hit{
		{Source: "b.js", Target: "function", Name: "load", Expression: "ThisExpression", AnchorType: "FunctionDeclaration", Line: 3, Column: 2},
		{Source: "a.js", Target: "function", Name: "load", Expression: "ThisExpression", AnchorType: "VariableDeclarator", Line: 1},
	})
	require.NoError(t, err)

	run2, err := s.Save(ctx, api.Query{Property: "setup", Expression: api.Super}, nil)
	require.NoError(t, err)
	assert.Greater(t, run2, run1)

	all, err := s.Hits(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.js", all[0].Source)
	assert.Equal(t, "b.js", all[1].Source)
	assert.Equal(t, 3, all[1].Line)
	assert.Equal(t, 2, all[1].Column)
	assert.Equal(t, run1, all[0].RunID)
	assert.Equal(t, q.String(), all[0].Query)
	assert.False(t, all[0].Created.IsZero())

	only, err := s.Hits(ctx, Filter{Source: "b.js"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "FunctionDeclaration", only[0].AnchorType)

	none, err := s.Hits(ctx, Filter{RunID: run2})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.Close())

	// Reopening keeps earlier runs.
	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	all, err = s.Hits(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "hits.db"))
	assert.Error(t, err)
}
