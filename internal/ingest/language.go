package ingest

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language names how a document's syntax tree is produced.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	// LangESTree is a syntax tree already serialized as ESTree JSON.
	LangESTree Language = "estree"
)

// Format describes a file type: the language of its code and whether that
// code is embedded in a host document inside a <script> block.
type Format struct {
	Lang     Language
	Embedded bool
}

// DefaultExtensions lists every extension DetectLanguage recognizes.
var DefaultExtensions = []string{
	".js", ".mjs", ".cjs", ".jsx",
	".ts", ".mts", ".cts", ".tsx",
	".vue", ".html", ".htm", ".svelte",
	".json",
}

// DetectLanguage returns the format for a path, and ok=false for unsupported
// extensions.
func DetectLanguage(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return Format{Lang: LangJavaScript}, true
	case ".ts", ".mts", ".cts":
		return Format{Lang: LangTypeScript}, true
	case ".tsx":
		return Format{Lang: LangTSX}, true
	case ".vue", ".html", ".htm", ".svelte":
		return Format{Lang: LangJavaScript, Embedded: true}, true
	case ".json":
		return Format{Lang: LangESTree}, true
	default:
		return Format{}, false
	}
}

// grammar returns the tree-sitter language, or nil for LangESTree.
func (l Language) grammar() *sitter.Language {
	switch l {
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	default:
		return nil
	}
}
