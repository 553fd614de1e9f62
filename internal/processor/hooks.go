package processor

import (
	"github.com/roach88/strtpl/internal/ir"
)

// ValueFilter converts one slot value on the fast path.
type ValueFilter func(v any) (any, error)

// ResultFilter converts the joined string into the processor result.
type ResultFilter[R any] func(s string) (R, error)

// Hooks configure a Processor. Nil hooks take the documented defaults.
type Hooks[R any] struct {
	// MapFragment rewrites fragment index. last is true only for the final
	// fragment. Default: identity.
	MapFragment func(index int, fragment string, last bool) (string, error)

	// MapValue rewrites value index. Default: identity.
	MapValue func(index int, value any) (any, error)

	// MapInterpolation converts the joined string into R.
	// May be nil only when R is string.
	MapInterpolation func(s string) (R, error)

	// MapType reports the slot type of value index after filtering.
	// Default: identity, or ir.TypeAny when MapValue or CreateValueFilter
	// is set.
	MapType func(index int, t ir.Type) ir.Type

	// CreateValueFilter builds the fast-path filter for slot index of
	// (unmapped) type t. Default: MapValue bound to index.
	CreateValueFilter func(index int, t ir.Type) (ValueFilter, error)

	// CreateResultFilter builds the fast-path result conversion.
	// Default: MapInterpolation.
	CreateResultFilter func() (ResultFilter[R], error)

	// SelectOwner returns the identity that claims linkage metadata slots.
	// Must be comparable. Default: the processor itself.
	SelectOwner func() any

	// Useful decides whether cached metadata may serve a call.
	// Default: metadata is non-nil.
	Useful func(m *Metadata[R]) bool
}

func identityFragment(_ int, fragment string, _ bool) (string, error) {
	return fragment, nil
}

func identityValue(_ int, value any) (any, error) {
	return value, nil
}

func identityType(_ int, t ir.Type) ir.Type {
	return t
}

func anyType(int, ir.Type) ir.Type {
	return ir.TypeAny
}

func nonNil[R any](m *Metadata[R]) bool {
	return m != nil
}

// stringResult returns the identity MapInterpolation when R is string.
func stringResult[R any]() (func(string) (R, error), bool) {
	var f any = func(s string) (string, error) { return s, nil }
	mi, ok := f.(func(string) (R, error))
	return mi, ok
}
