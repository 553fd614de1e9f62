package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes v as RFC 8785 canonical JSON. Site keys, stored
// string lists and golden traces all go through it, so equal values always
// produce equal bytes.
//
// Compared to encoding/json:
//   - object keys are ordered by UTF-16 code units
//   - strings are NFC normalized and only quote, backslash and C0 controls
//     are escaped (no HTML or U+2028/U+2029 escaping)
//   - floats and null are rejected
//   - output is compact
//
// Accepted values: string, bool, int, int64, Type, Path, Signature,
// []string, []any, map[string]any and map[string]string.
func MarshalCanonical(v any) ([]byte, error) {
	var e canonicalEncoder
	if err := e.encode(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type canonicalEncoder struct {
	buf bytes.Buffer
}

func (e *canonicalEncoder) encode(v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		e.writeString(val)
	case bool:
		e.buf.WriteString(strconv.FormatBool(val))
	case int:
		e.buf.WriteString(strconv.Itoa(val))
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
	case Type:
		e.writeString(val.String())
	case Path:
		e.writeString(string(val))
	case Signature:
		return e.encodeList(len(val), func(i int) any { return val[i] })
	case []string:
		return e.encodeList(len(val), func(i int) any { return val[i] })
	case []any:
		return e.encodeList(len(val), func(i int) any { return val[i] })
	case map[string]any:
		return e.encodeObject(val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return e.encodeObject(obj)
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func (e *canonicalEncoder) encodeList(n int, at func(int) any) error {
	e.buf.WriteByte('[')
	for i := range n {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(at(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *canonicalEncoder) encodeObject(obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.writeString(k)
		e.buf.WriteByte(':')
		if err := e.encode(obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a canonical JSON string. Invalid UTF-8 is
// replaced with U+FFFD before normalization.
func (e *canonicalEncoder) writeString(s string) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = norm.NFC.String(s)

	e.buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			e.buf.WriteString(`\"`)
		case c == '\\':
			e.buf.WriteString(`\\`)
		case c == '\b':
			e.buf.WriteString(`\b`)
		case c == '\f':
			e.buf.WriteString(`\f`)
		case c == '\n':
			e.buf.WriteString(`\n`)
		case c == '\r':
			e.buf.WriteString(`\r`)
		case c == '\t':
			e.buf.WriteString(`\t`)
		case c < 0x20:
			e.buf.WriteString(`\u00`)
			e.buf.WriteByte(hexDigits[c>>4])
			e.buf.WriteByte(hexDigits[c&0xf])
		default:
			e.buf.WriteByte(c)
		}
	}
	e.buf.WriteByte('"')
}

// compareUTF16 orders strings by UTF-16 code units. Byte order differs
// for characters outside the BMP versus U+E000..U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
