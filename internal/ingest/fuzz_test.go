package ingest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shiplet/ast-search/internal/graph"
)

func FuzzExtractScript(f *testing.F) {
	f.Add("<template></template>\n<script>\nexport default {}\n</script>\n")
	f.Add("<script lang=\"ts\">\nlet a: number = 1\n")
	f.Add("<scripts>\n</script>")
	f.Add("")

	f.Fuzz(func(t *testing.T, doc string) {
		s, err := ExtractScript(bytes.NewReader([]byte(doc)))
		if err != nil {
			if !errors.Is(err, ErrNoScript) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if s.Offset > len(doc) || !bytes.Contains([]byte(doc), s.Code) {
			t.Fatalf("script %q not inside document", s.Code)
		}
	})
}

func FuzzParseSource(f *testing.F) {
	f.Add("function load() { return this.x }")
	f.Add("const o = { a() { return super.a() }, b: async () => await x }")
	f.Add("class A { get x() { return 1 } }")
	f.Add("}{")

	f.Fuzz(func(t *testing.T, code string) {
		// Limit size to keep iterations fast.
		if len(code) > 4096 {
			return
		}
		raw, err := ParseSource(context.Background(), Source{Path: "fuzz.js", Code: []byte(code), Lang: LangJavaScript})
		var synErr *SyntaxError
		if err != nil && !errors.As(err, &synErr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw == nil {
			t.Fatal("tree is nil")
		}
		if tree := graph.FromValue(raw); tree.Root() == nil {
			t.Fatal("root is nil")
		}
	})
}
