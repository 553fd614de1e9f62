package template

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/strtpl/internal/ir"
)

// MaxSlots is the upper bound on embedded values in one template.
const MaxSlots = 200

// Template is an immutable interpolation occurrence: fragments interleaved
// with values, len(fragments) == len(values)+1.
//
// Linked templates (built by a Linkage) share the linkage's fragment slice
// and use its specialized procedures. Unlinked templates own their slices.
// Neither slice is ever exposed for mutation.
type Template struct {
	fragments []string
	values    []any
	link      *Linkage
}

var _ ir.Interpolator = (*Template)(nil)

// Of creates a template from fragments and values. Both slices are copied.
//
// Returns NULL_REFERENCE if fragments or values is nil and INVALID_ARGUMENT
// if len(fragments) != len(values)+1 or there are more than MaxSlots values.
func Of(fragments []string, values []any) (*Template, error) {
	if fragments == nil {
		return nil, NewNullReference("Of", "fragments")
	}
	if values == nil {
		return nil, NewNullReference("Of", "values")
	}
	if len(fragments) != len(values)+1 {
		return nil, NewInvalidArgument("Of",
			"fragments size must be one more than values size (%d fragments, %d values)",
			len(fragments), len(values))
	}
	if len(values) > MaxSlots {
		return nil, NewInvalidArgument("Of", "too many embedded values (%d > %d)", len(values), MaxSlots)
	}
	return newTrusted(slices.Clone(fragments), slices.Clone(values)), nil
}

// MustOf is like Of but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOf(fragments []string, values []any) *Template {
	t, err := Of(fragments, values)
	if err != nil {
		panic(err)
	}
	return t
}

// OfString creates a template with a single fragment and no values.
func OfString(s string) *Template {
	return newTrusted([]string{s}, []any{})
}

// newTrusted wraps slices the caller promises not to retain or mutate.
func newTrusted(fragments []string, values []any) *Template {
	return &Template{fragments: fragments, values: values}
}

// Fragments returns a copy of the fragment list.
func (t *Template) Fragments() []string {
	return slices.Clone(t.fragments)
}

// Values returns a copy of the value list.
func (t *Template) Values() []any {
	if t.link != nil {
		return t.link.procs.values(t.values)
	}
	return slices.Clone(t.values)
}

// Len returns the number of embedded values.
func (t *Template) Len() int {
	return len(t.values)
}

// Fragment returns fragment i without copying the list.
func (t *Template) Fragment(i int) string {
	return t.fragments[i]
}

// Value returns value i without copying the list.
func (t *Template) Value(i int) any {
	return t.values[i]
}

// Types returns the slot signature: the linkage signature for linked
// templates, all TypeAny otherwise.
func (t *Template) Types() ir.Signature {
	if t.link != nil {
		return t.link.Types()
	}
	return ir.AnySignature(len(t.values))
}

// Linkage returns the call-site linkage, or nil for unlinked templates.
func (t *Template) Linkage() *Linkage {
	return t.link
}

// Interpolate concatenates fragments and stringified values left to right.
// Nested templates interpolate recursively.
func (t *Template) Interpolate() string {
	if t.link != nil {
		return t.link.procs.join(t.values)
	}
	if len(t.fragments) == 1 {
		return t.fragments[0]
	}
	strs := make([]string, len(t.values))
	for i, v := range t.values {
		strs[i] = ir.ToString(v)
	}
	return join(t.fragments, strs)
}

// InterpolateFunc is like Interpolate but converts each value with fn.
// Nested templates are passed to fn as-is. A nil fn uses ir.ToString.
func (t *Template) InterpolateFunc(fn func(any) string) string {
	if fn == nil {
		fn = ir.ToString
	}
	strs := make([]string, len(t.values))
	for i, v := range t.values {
		strs[i] = fn(v)
	}
	if t.link != nil {
		return t.link.procs.mappedJoin(strs)
	}
	return join(t.fragments, strs)
}

// MapValues returns an unlinked template with the same fragments and each
// value replaced by fn(value).
func (t *Template) MapValues(fn func(any) any) *Template {
	values := make([]any, len(t.values))
	for i, v := range t.values {
		values[i] = fn(v)
	}
	return newTrusted(t.fragments, values)
}

// Equal reports whether both templates have equal fragments and equal values.
// Values compare with an Equal method when present, else reflect.DeepEqual.
func (t *Template) Equal(other *Template) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if !slices.Equal(t.fragments, other.fragments) || len(t.values) != len(other.values) {
		return false
	}
	for i := range t.values {
		if !valuesEqual(t.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

type equaler interface {
	Equal(any) bool
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(*Template); ok {
		tb, ok := b.(*Template)
		return ok && ta.Equal(tb)
	}
	if ea, ok := a.(equaler); ok {
		return ea.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// Hash combines a hash of the fragments with a hash of the values.
// Equal templates hash equally.
func (t *Template) Hash() uint64 {
	var hv uint64 = 1
	for _, v := range t.values {
		hv = 31*hv + hashValue(v)
	}
	return 31*ir.HashFragments(t.fragments) + hv
}

type hasher interface {
	Hash() uint64
}

func hashValue(v any) uint64 {
	if tv, ok := v.(*Template); ok {
		if tv == nil {
			return 0
		}
		return tv.Hash()
	}
	if h, ok := v.(hasher); ok {
		return h.Hash()
	}
	return ir.HashValue(v)
}

// String renders the template structure (not its interpolation).
func (t *Template) String() string {
	var b strings.Builder
	b.WriteString("Template{ fragments = [ ")
	for i, f := range t.fragments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(f))
	}
	b.WriteString(" ], values = [")
	for i, v := range t.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ir.ToString(v))
	}
	b.WriteString("] }")
	return b.String()
}

// Str returns the interpolation of t.
// Returns NULL_REFERENCE if t is nil.
func Str(t *Template) (string, error) {
	if t == nil {
		return "", NewNullReference("Str", "template")
	}
	return t.Interpolate(), nil
}

// StrFunc returns the interpolation of t with values converted by fn.
// Returns NULL_REFERENCE if t or fn is nil.
func StrFunc(t *Template, fn func(any) string) (string, error) {
	if t == nil {
		return "", NewNullReference("StrFunc", "template")
	}
	if fn == nil {
		return "", NewNullReference("StrFunc", "func")
	}
	return t.InterpolateFunc(fn), nil
}
