package ingest

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

var simpleEscapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", 'b': "\b", 'f': "\f", 'v': "\v",
	'\n': "",
}

// unescape decodes the escape sequences of a JavaScript string literal body
// (the text between the quotes). Malformed escapes are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		n := escape(&b, s[i+1:])
		i += n
	}
	return b.String()
}

// escape writes the value of the escape starting right after a backslash and
// returns how many bytes of rest it consumed.
func escape(b *strings.Builder, rest string) int {
	c := rest[0]
	if v, ok := simpleEscapes[c]; ok {
		b.WriteString(v)
		return 1
	}
	switch c {
	case '\r':
		if len(rest) > 1 && rest[1] == '\n' {
			return 2
		}
		return 1
	case '0':
		if len(rest) == 1 || rest[1] < '0' || rest[1] > '9' {
			b.WriteByte(0)
			return 1
		}
	case 'x':
		if r, ok := hexRune(rest, 1, 3); ok {
			b.WriteRune(r)
			return 3
		}
	case 'u':
		if len(rest) > 1 && rest[1] == '{' {
			end := strings.IndexByte(rest, '}')
			if r, ok := hexRune(rest, 2, end); ok {
				b.WriteRune(r)
				return end + 1
			}
			break
		}
		r, ok := hexRune(rest, 1, 5)
		if !ok {
			break
		}
		if utf16.IsSurrogate(r) && len(rest) >= 11 && rest[5] == '\\' && rest[6] == 'u' {
			if lo, ok := hexRune(rest, 7, 11); ok {
				if pair := utf16.DecodeRune(r, lo); pair != unicode.ReplacementChar {
					b.WriteRune(pair)
					return 11
				}
			}
		}
		b.WriteRune(r)
		return 5
	}
	switch c {
	case '0', 'x', 'u':
		b.WriteByte('\\')
	}
	b.WriteByte(c)
	return 1
}

func hexRune(s string, from, to int) (rune, bool) {
	if from < 0 || to > len(s) || from >= to {
		return 0, false
	}
	v, err := strconv.ParseUint(s[from:to], 16, 32)
	if err != nil || v > 0x10FFFF {
		return 0, false
	}
	return rune(v), true
}
