package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScript(t *testing.T) {
	head := "<template>\n  <div/>\n</template>\n<script>\n"
	doc := head + "export default {}\n</script>\n<style></style>\n"

	s, err := ExtractScript(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "export default {}\n", string(s.Code))
	assert.Equal(t, LangJavaScript, s.Lang)
	assert.Equal(t, 4, s.Line)
	assert.Equal(t, len(head), s.Offset)
}

func TestExtractScriptVariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
		lang Language
	}{
		{"lang ts", "<script lang=\"ts\">\nlet a: number = 1\n</script>\n", "let a: number = 1\n", LangTypeScript},
		{"lang tsx", "<script setup lang='tsx'>\nlet a = 1\n</script>\n", "let a = 1\n", LangTSX},
		{"indented tags", "  <script>\n  let a = 1\n  </script>\n", "  let a = 1\n", LangJavaScript},
		{"first block only", "<script>\na()\n</script>\n<script>\nb()\n</script>\n", "a()\n", LangJavaScript},
		{"unterminated", "<script>\na()\nb()", "a()\nb()", LangJavaScript},
		{"crlf", "<script>\r\na()\r\n</script>\r\n", "a()\r\n", LangJavaScript},
		{"empty block", "<script>\n</script>\n", "", LangJavaScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ExtractScript(strings.NewReader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.code, string(s.Code))
			assert.Equal(t, tt.lang, s.Lang)
		})
	}
}

func TestExtractScriptMissing(t *testing.T) {
	for _, doc := range []string{
		"",
		"<template></template>\n",
		"<scripts>\na()\n</scripts>\n",
		"<script",
	} {
		_, err := ExtractScript(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrNoScript, "doc %q", doc)
	}
}
