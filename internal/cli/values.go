package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// setValue is one --set binding: the text as typed and its YAML decoding.
type setValue struct {
	raw     string
	decoded any
}

// parseSetFlags decodes --set name=value pairs. Values are YAML scalars,
// so 42 is an int, 2.5 a float, true a bool and anything else a string.
// A later binding for the same name wins.
func parseSetFlags(pairs []string) (map[string]setValue, error) {
	values := make(map[string]setValue, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", pair)
		}

		sv := setValue{raw: raw, decoded: raw}
		if raw != "" {
			var decoded any
			if err := yaml.Unmarshal([]byte(raw), &decoded); err == nil {
				switch decoded.(type) {
				case map[string]any, []any:
					// Keep composite YAML as text
				default:
					sv.decoded = decoded
				}
			}
		}
		values[name] = sv
	}
	return values, nil
}

// bindValues orders --set bindings by the site's expressions and adapts
// each to its slot type.
func bindValues(spec *ir.SiteSpec, values map[string]setValue) ([]any, error) {
	args := make([]any, len(spec.Expressions))
	for i, expr := range spec.Expressions {
		sv, ok := values[expr]
		if !ok {
			return nil, fmt.Errorf("missing --set value for %q", expr)
		}
		v, err := coerceValue(sv, spec.Types[i])
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", expr, err)
		}
		args[i] = v
	}
	return args, nil
}

// coerceValue converts a binding to what a slot of type t accepts. String
// and template slots take the text as typed; numeric slots widen YAML ints.
func coerceValue(sv setValue, t ir.Type) (any, error) {
	switch t {
	case ir.TypeString:
		return sv.raw, nil
	case ir.TypeTemplate:
		return template.OfString(sv.raw), nil
	case ir.TypeUint:
		if n, ok := sv.decoded.(int); ok {
			if n < 0 {
				return nil, fmt.Errorf("negative value %d for uint slot", n)
			}
			return uint64(n), nil
		}
	case ir.TypeFloat:
		if n, ok := sv.decoded.(int); ok {
			return float64(n), nil
		}
	}
	if !t.Conforms(sv.decoded) {
		return nil, fmt.Errorf("%q is not a valid %s", sv.raw, t)
	}
	return sv.decoded, nil
}
