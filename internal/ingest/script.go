package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoScript is returned when a host document has no <script> block.
var ErrNoScript = errors.New("no <script> block")

var langAttr = regexp.MustCompile(`\blang\s*=\s*["']?([A-Za-z]+)`)

// Script is the code of the first <script> block in a host document. Line
// and Offset give the position of Code's first byte in the host, so parsed
// locations can be reported against the host file.
type Script struct {
	Code   []byte
	Lang   Language
	Line   int // 0-based
	Offset int
}

// ExtractScript returns the lines between the first line opening a <script>
// tag and the next line closing it. The tag lines themselves are dropped. A
// lang="ts" or lang="tsx" attribute selects the TypeScript grammars.
func ExtractScript(r io.Reader) (*Script, error) {
	br := bufio.NewReader(r)
	var (
		script *Script
		code   strings.Builder
		line   int
		offset int
	)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			trimmed := strings.TrimSpace(text)
			switch {
			case script == nil && isScriptOpen(trimmed):
				script = &Script{Lang: scriptLang(trimmed), Line: line + 1, Offset: offset + len(text)}
			case script != nil && strings.HasPrefix(trimmed, "</script"):
				script.Code = []byte(code.String())
				return script, nil
			case script != nil:
				code.WriteString(text)
			}
			line++
			offset += len(text)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
	}
	if script == nil {
		return nil, ErrNoScript
	}
	// Unterminated block: take everything after the tag.
	script.Code = []byte(code.String())
	return script, nil
}

func isScriptOpen(trimmed string) bool {
	rest, ok := strings.CutPrefix(trimmed, "<script")
	if !ok || rest == "" {
		return false
	}
	return rest[0] == '>' || rest[0] == ' ' || rest[0] == '\t'
}

func scriptLang(tag string) Language {
	m := langAttr.FindStringSubmatch(tag)
	if m == nil {
		return LangJavaScript
	}
	switch strings.ToLower(m[1]) {
	case "ts", "typescript":
		return LangTypeScript
	case "tsx":
		return LangTSX
	default:
		return LangJavaScript
	}
}
