package template

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/strtpl/internal/ir"
)

// procedures are the composition procedures specialized for one
// (fragments, signature) pair. They operate on a template's value storage.
type procedures struct {
	// values returns an ordered copy of the slot values.
	values func(vals []any) []any

	// join interpolates with per-slot stringifiers in one pass.
	join func(vals []any) string

	// mappedJoin concatenates caller-converted strings with the fragments.
	mappedJoin func(strs []string) string
}

type getter func(vals []any) any

type stringifier func(v any) string

// plan specializes the three procedures for a call site.
// Returns an error if a slot type cannot be specialized.
func plan(fragments []string, sig ir.Signature) (*procedures, error) {
	n := len(sig)

	getters := make([]getter, n)
	for i := range n {
		getters[i] = func(vals []any) any { return vals[i] }
	}

	filters := make([]stringifier, n)
	for i, t := range sig {
		f, err := stringifierFor(t)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		filters[i] = f
	}

	fragLen := 0
	for _, f := range fragments {
		fragLen += len(f)
	}
	// Constant fragments are copied so the procedures never alias caller memory.
	frags := slices.Clone(fragments)

	values := func(vals []any) []any {
		out := make([]any, n)
		for i, get := range getters {
			out[i] = get(vals)
		}
		return out
	}

	var join func(vals []any) string
	if n == 0 {
		only := frags[0]
		join = func([]any) string { return only }
	} else {
		join = func(vals []any) string {
			var b strings.Builder
			b.Grow(fragLen + 8*n)
			b.WriteString(frags[0])
			for i := range n {
				b.WriteString(filters[i](getters[i](vals)))
				b.WriteString(frags[i+1])
			}
			return b.String()
		}
	}

	mappedJoin := func(strs []string) string {
		size := fragLen
		for _, s := range strs {
			size += len(s)
		}
		var b strings.Builder
		b.Grow(size)
		b.WriteString(frags[0])
		for i := range n {
			b.WriteString(strs[i])
			b.WriteString(frags[i+1])
		}
		return b.String()
	}

	return &procedures{values: values, join: join, mappedJoin: mappedJoin}, nil
}

// stringifierFor resolves the conversion for a slot type once, so joins
// never dispatch on the static type per call.
func stringifierFor(t ir.Type) (stringifier, error) {
	switch t {
	case ir.TypeString:
		return stringToString, nil
	case ir.TypeInt:
		return intToString, nil
	case ir.TypeUint:
		return uintToString, nil
	case ir.TypeFloat:
		return floatToString, nil
	case ir.TypeBool:
		return boolToString, nil
	case ir.TypeTemplate:
		return templateToString, nil
	case ir.TypeAny:
		return ir.ToString, nil
	default:
		return nil, fmt.Errorf("unsupported slot type %s", t)
	}
}

// Each stringifier handles its slot type directly and falls back to
// ir.ToString for values that do not conform.

func stringToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ir.ToString(v)
}

func boolToString(v any) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return ir.ToString(v)
}

func intToString(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int16:
		return strconv.FormatInt(int64(n), 10)
	case int8:
		return strconv.FormatInt(int64(n), 10)
	}
	return ir.ToString(v)
}

func uintToString(v any) string {
	switch n := v.(type) {
	case uint:
		return strconv.FormatUint(uint64(n), 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case uint32:
		return strconv.FormatUint(uint64(n), 10)
	case uint16:
		return strconv.FormatUint(uint64(n), 10)
	case uint8:
		return strconv.FormatUint(uint64(n), 10)
	}
	return ir.ToString(v)
}

func floatToString(v any) string {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return ir.ToString(v)
}

func templateToString(v any) string {
	if t, ok := v.(*Template); ok {
		if t == nil {
			return ir.NullString
		}
		return t.Interpolate()
	}
	return ir.ToString(v)
}

// Stringifier returns the conversion a specialized join uses for slot type
// t. Values that do not conform to t are converted with ir.ToString.
func Stringifier(t ir.Type) (func(any) string, error) {
	f, err := stringifierFor(t)
	if err != nil {
		return nil, err
	}
	return f, nil
}
