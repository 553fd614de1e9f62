package ir

import (
	"fmt"
	"strings"
)

// Type describes the static type of one embedded value slot.
//
// A call site declares one Type per embedded expression. The specialization
// factory resolves a Type to a getter and a stringifier once, so values of a
// well-typed slot never go through generic dispatch.
type Type uint8

const (
	// TypeAny accepts any value; stringified through ToString.
	TypeAny Type = iota
	// TypeString accepts string values.
	TypeString
	// TypeInt accepts signed integers of any width.
	TypeInt
	// TypeUint accepts unsigned integers of any width.
	TypeUint
	// TypeFloat accepts float32 and float64.
	TypeFloat
	// TypeBool accepts bool.
	TypeBool
	// TypeTemplate accepts nested templates (or nil).
	TypeTemplate
)

var typeNames = [...]string{
	TypeAny:      "any",
	TypeString:   "string",
	TypeInt:      "int",
	TypeUint:     "uint",
	TypeFloat:    "float",
	TypeBool:     "bool",
	TypeTemplate: "template",
}

// typeAliases maps accepted spellings to slot types.
var typeAliases = map[string]Type{
	"any":      TypeAny,
	"object":   TypeAny,
	"string":   TypeString,
	"int":      TypeInt,
	"int64":    TypeInt,
	"uint":     TypeUint,
	"uint64":   TypeUint,
	"float":    TypeFloat,
	"float64":  TypeFloat,
	"bool":     TypeBool,
	"template": TypeTemplate,
}

// String returns the canonical type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is a known slot type.
func (t Type) Valid() bool {
	return int(t) < len(typeNames)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid slot type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType resolves a type name (case-insensitive) to a slot Type.
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TypeAny, fmt.Errorf("unknown slot type %q", name)
	}
	return t, nil
}

// Conforms reports whether v may be stored in a slot of type t.
func (t Type) Conforms(v any) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		switch v.(type) {
		case int, int8, int16, int32, int64:
			return true
		}
		return false
	case TypeUint:
		switch v.(type) {
		case uint, uint8, uint16, uint32, uint64, uintptr:
			return true
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeTemplate:
		if v == nil {
			return true
		}
		_, ok := v.(Interpolator)
		return ok
	default:
		return false
	}
}

// TypeOf infers the narrowest slot Type for a runtime value.
func TypeOf(v any) Type {
	for _, t := range []Type{TypeString, TypeInt, TypeUint, TypeFloat, TypeBool} {
		if t.Conforms(v) {
			return t
		}
	}
	if _, ok := v.(Interpolator); ok {
		return TypeTemplate
	}
	return TypeAny
}

// Signature is the ordered list of slot types of a call site.
type Signature []Type

// SignatureOf infers a signature from runtime values.
func SignatureOf(values []any) Signature {
	sig := make(Signature, len(values))
	for i, v := range values {
		sig[i] = TypeOf(v)
	}
	return sig
}

// AnySignature returns an all-TypeAny signature of the given arity.
func AnySignature(n int) Signature {
	return make(Signature, n)
}

// ParseSignature parses a list of type names.
func ParseSignature(names []string) (Signature, error) {
	sig := make(Signature, len(names))
	for i, name := range names {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		sig[i] = t
	}
	return sig, nil
}

// Names returns the type names of the signature.
func (s Signature) Names() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.String()
	}
	return names
}

// String renders the signature as "(int, string)".
func (s Signature) String() string {
	return "(" + strings.Join(s.Names(), ", ") + ")"
}

// Equal reports element-wise equality.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
