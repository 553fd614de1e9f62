package template

import (
	"strings"

	"github.com/roach88/strtpl/internal/ir"
)

// Interpolate interleaves the string form of values between fragments.
// This is the generic path used when no specialized procedure applies.
//
// Returns INVALID_ARGUMENT if len(fragments) != len(values)+1.
func Interpolate(fragments []string, values []any) (string, error) {
	if len(fragments) != len(values)+1 {
		return "", NewInvalidArgument("Interpolate",
			"fragments size must be one more than values size (%d fragments, %d values)",
			len(fragments), len(values))
	}
	if len(fragments) == 1 {
		return fragments[0], nil
	}
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = ir.ToString(v)
	}
	return join(fragments, strs), nil
}

// join concatenates fragments with strs in between.
// Callers guarantee len(fragments) == len(strs)+1.
func join(fragments []string, strs []string) string {
	size := 0
	for _, f := range fragments {
		size += len(f)
	}
	for _, s := range strs {
		size += len(s)
	}

	var b strings.Builder
	b.Grow(size)
	b.WriteString(fragments[0])
	for i, s := range strs {
		b.WriteString(s)
		b.WriteString(fragments[i+1])
	}
	return b.String()
}
