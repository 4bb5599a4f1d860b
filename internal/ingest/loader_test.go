package ingest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiplet/ast-search/internal/search"
)

const vueComponent = `<template>
  <button @click="setup">go</button>
</template>
<script>
export default {
  setup() {
    this.init();
  },
  teardown() {
    return 1;
  }
}
</script>
`

const estreeDoc = `{
  "type": "Program",
  "body": [{
    "type": "FunctionDeclaration",
    "id": {"type": "Identifier", "name": "load"},
    "params": [],
    "body": {"type": "BlockStatement", "body": [{
      "type": "ReturnStatement", "argument": {"type": "ThisExpression"}
    }]}
  }]
}`

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return &Loader{FS: fs}
}

func TestLoaderEmbeddedScript(t *testing.T) {
	l := newLoader(t, map[string]string{"src/App.vue": vueComponent})

	doc, err := l.Load(context.Background(), "src/App.vue")
	require.NoError(t, err)
	assert.Equal(t, "src/App.vue", doc.Path)
	assert.Equal(t, LangJavaScript, doc.Lang)
	assert.Equal(t, "ExportDefaultDeclaration", at(t, doc.Raw, "body", 0, "type"))
	assert.Equal(t, 5, at(t, doc.Raw, "body", 0, "loc", "start", "line"), "lines are reported against the .vue file")

	s := search.NewSearcher(doc.Tree)
	assert.True(t, s.PropertyForExpression("setup", "ThisExpression"))
	assert.False(t, s.PropertyForExpression("teardown", "ThisExpression"))

	anchor := s.PropertyAnchor("setup")
	require.NotNil(t, anchor)
	line, col, ok := anchor.Position()
	require.True(t, ok)
	assert.Equal(t, 6, line)
	assert.Equal(t, 2, col)
}

func TestLoaderESTree(t *testing.T) {
	l := newLoader(t, map[string]string{
		"ast.json":   estreeDoc,
		"list.json":  `[1, 2]`,
		"plain.json": `{"name": "x"}`,
	})

	doc, err := l.Load(context.Background(), "ast.json")
	require.NoError(t, err)
	assert.Equal(t, LangESTree, doc.Lang)
	assert.True(t, search.NewSearcher(doc.Tree).FunctionForExpression("load", "ThisExpression"))

	_, err = l.Load(context.Background(), "list.json")
	assert.ErrorIs(t, err, ErrNotESTree)
	_, err = l.Load(context.Background(), "plain.json")
	assert.ErrorIs(t, err, ErrNotESTree)
}

func TestLoaderErrors(t *testing.T) {
	l := newLoader(t, map[string]string{
		"page.html":    "<p>no code</p>\n",
		"notes.txt":    "hello",
		"broken.js":    "function load( { return this; }\n",
		"invalid.json": "{",
	})
	ctx := context.Background()

	_, err := l.Load(ctx, "page.html")
	assert.ErrorIs(t, err, ErrNoScript)

	_, err = l.Load(ctx, "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = l.Load(ctx, "missing.js")
	assert.Error(t, err)

	_, err = l.Load(ctx, "invalid.json")
	assert.Error(t, err)

	t.Run("lenient syntax", func(t *testing.T) {
		doc, err := l.Load(ctx, "broken.js")
		require.NoError(t, err)
		assert.NotNil(t, doc.Tree)
	})

	t.Run("strict syntax", func(t *testing.T) {
		strict := *l
		strict.Strict = true
		_, err := strict.Load(ctx, "broken.js")
		var synErr *SyntaxError
		assert.True(t, errors.As(err, &synErr))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Load(cctx, "broken.js")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a.js", Format{Lang: LangJavaScript}, true},
		{"a.MJS", Format{Lang: LangJavaScript}, true},
		{"a.jsx", Format{Lang: LangJavaScript}, true},
		{"a.ts", Format{Lang: LangTypeScript}, true},
		{"a.cts", Format{Lang: LangTypeScript}, true},
		{"a.tsx", Format{Lang: LangTSX}, true},
		{"a.vue", Format{Lang: LangJavaScript, Embedded: true}, true},
		{"a.svelte", Format{Lang: LangJavaScript, Embedded: true}, true},
		{"ast.json", Format{Lang: LangESTree}, true},
		{"a.go", Format{}, false},
		{"Makefile", Format{}, false},
	}
	for _, tt := range tests {
		got, ok := DetectLanguage(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
	for _, ext := range DefaultExtensions {
		_, ok := DetectLanguage("x" + ext)
		assert.True(t, ok, ext)
	}
}

func TestSelect(t *testing.T) {
	l := newLoader(t, map[string]string{"ast.json": estreeDoc})
	doc, err := l.Load(context.Background(), "ast.json")
	require.NoError(t, err)

	nodes, err := Select(doc, "$.body[0]")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "FunctionDeclaration", nodes[0].Type)

	nodes, err = Select(doc, "$.body[0].body.body[0].argument")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "ThisExpression", nodes[0].Type)

	nodes, err = Select(doc, "$.body")
	require.NoError(t, err)
	require.Len(t, nodes, 1, "a list selects its elements")
	assert.Equal(t, "FunctionDeclaration", nodes[0].Type)

	nodes, err = Select(doc, "$..name")
	require.NoError(t, err)
	assert.Empty(t, nodes, "scalars have no node")

	_, err = Select(doc, "$.body[")
	assert.Error(t, err)
}

func TestDumpRoundTrip(t *testing.T) {
	prog := parse(t, LangJavaScript, "function load(){ return this; }\n")

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, prog))
	assert.Contains(t, buf.String(), "\n  \"body\"")

	back, err := ParseESTree(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FunctionDeclaration", at(t, back, "body", 0, "type"))
}
