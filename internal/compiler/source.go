package compiler

import (
	"fmt"
	"strings"
)

// ParseSource splits template source text into fragments and embedded
// expressions.
//
// An embedding is written \{expr}. A doubled backslash (\\) stands for one
// literal backslash; any other backslash is kept as written. Expressions are
// trimmed of surrounding whitespace.
//
//	fragments, exprs, _ := ParseSource(`\{x} + \{y} = \{z}`)
//	// fragments == []string{"", " + ", " = ", ""}
//	// exprs     == []string{"x", "y", "z"}
//
// Returns a CompileError for an unterminated or empty embedding.
func ParseSource(src string) (fragments []string, exprs []string, err error) {
	var frag strings.Builder
	fragments = []string{}
	exprs = []string{}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' || i+1 >= len(src) {
			frag.WriteByte(c)
			continue
		}

		switch src[i+1] {
		case '\\':
			frag.WriteByte('\\')
			i++
		case '{':
			end := strings.IndexByte(src[i+2:], '}')
			if end < 0 {
				return nil, nil, &CompileError{
					Field:   "source",
					Message: fmt.Sprintf("unterminated embedded expression at offset %d", i),
				}
			}
			expr := strings.TrimSpace(src[i+2 : i+2+end])
			if expr == "" {
				return nil, nil, &CompileError{
					Field:   "source",
					Message: fmt.Sprintf("empty embedded expression at offset %d", i),
				}
			}
			fragments = append(fragments, frag.String())
			frag.Reset()
			exprs = append(exprs, expr)
			i += 2 + end
		default:
			frag.WriteByte(c)
		}
	}

	fragments = append(fragments, frag.String())
	return fragments, exprs, nil
}

// FormatSource is the inverse of ParseSource: it rebuilds source text from
// fragments and expressions, escaping backslashes that would otherwise start
// an embedding or an escape.
func FormatSource(fragments, exprs []string) (string, error) {
	if len(fragments) != len(exprs)+1 {
		return "", fmt.Errorf("fragments size must be one more than expressions size (%d fragments, %d expressions)",
			len(fragments), len(exprs))
	}
	var b strings.Builder
	for i, f := range fragments {
		b.WriteString(escapeFragment(f))
		if i < len(exprs) {
			b.WriteString(`\{`)
			b.WriteString(exprs[i])
			b.WriteString("}")
		}
	}
	return b.String(), nil
}

func escapeFragment(f string) string {
	if !strings.Contains(f, `\`) {
		return f
	}
	var b strings.Builder
	for i := 0; i < len(f); i++ {
		if f[i] == '\\' {
			next := byte(0)
			if i+1 < len(f) {
				next = f[i+1]
			}
			// Trailing backslashes precede the next embedding's "\{".
			if next == '\\' || next == '{' || i+1 == len(f) {
				b.WriteString(`\\`)
				continue
			}
		}
		b.WriteByte(f[i])
	}
	return b.String()
}
