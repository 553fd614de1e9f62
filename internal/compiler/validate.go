package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value passed to Validate

	// SiteSpec errors (E101-E109)
	ErrInvalidSiteName   = "E101" // site name is not an identifier
	ErrShapeMismatch     = "E102" // fragments/expressions size mismatch
	ErrTypeCount         = "E103" // types/expressions size mismatch
	ErrInvalidSlotType   = "E104" // unknown slot type
	ErrDuplicateSite     = "E105" // two sites specialize to the same linkage
	ErrTooManySlots      = "E106" // more than template.MaxSlots embeddings
	ErrInvalidExpression = "E107" // embedded expression is not a (dotted) name
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled sites against schema rules.
// Returns all errors found (does not fail-fast).
// Supports SiteSpec and []SiteSpec (which also checks for duplicates).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.SiteSpec:
		return validateSite(spec)
	case ir.SiteSpec:
		return validateSite(&spec)
	case []ir.SiteSpec:
		return validateCatalog(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// validateSite validates a single site specification.
func validateSite(spec *ir.SiteSpec) []ValidationError {
	var errs []ValidationError

	// E101: site name must be usable as a CLI argument and log field
	if !siteNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid site name %q", spec.Name),
			Code:    ErrInvalidSiteName,
		})
	}

	// E102: fragments must bracket every expression
	if len(spec.Fragments) != len(spec.Expressions)+1 {
		errs = append(errs, ValidationError{
			Field: "fragments",
			Message: fmt.Sprintf("fragments size must be one more than expressions size (%d fragments, %d expressions)",
				len(spec.Fragments), len(spec.Expressions)),
			Code: ErrShapeMismatch,
		})
	}

	// E103: one type per expression
	if len(spec.Types) != len(spec.Expressions) {
		errs = append(errs, ValidationError{
			Field:   "types",
			Message: fmt.Sprintf("types has %d entries, source embeds %d values", len(spec.Types), len(spec.Expressions)),
			Code:    ErrTypeCount,
		})
	}

	// E104: known slot types
	for i, t := range spec.Types {
		if !t.Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("types[%d]", i),
				Message: fmt.Sprintf("invalid slot type %s", t),
				Code:    ErrInvalidSlotType,
			})
		}
	}

	// E106: slot limit
	if len(spec.Expressions) > template.MaxSlots {
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("too many embedded values (%d > %d)", len(spec.Expressions), template.MaxSlots),
			Code:    ErrTooManySlots,
		})
	}

	// E107: expressions are names
	for i, expr := range spec.Expressions {
		if !expressionPattern.MatchString(expr) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("expressions[%d]", i),
				Message: fmt.Sprintf("invalid embedded expression %q, expected a name like \"user.id\"", expr),
				Code:    ErrInvalidExpression,
			})
		}
	}

	return errs
}

// validateCatalog validates every site and reports sites that would share
// a linkage.
func validateCatalog(specs []ir.SiteSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]string)

	for i := range specs {
		spec := &specs[i]
		for _, e := range validateSite(spec) {
			e.Field = spec.Name + "." + e.Field
			errs = append(errs, e)
		}

		key, err := ir.SiteKey(spec.Fragments, spec.Types)
		if err != nil {
			continue
		}
		// E105: identical fragments and types collapse into one linkage
		if other, ok := seen[key]; ok {
			errs = append(errs, ValidationError{
				Field:   spec.Name,
				Message: fmt.Sprintf("site %q specializes to the same linkage as %q", spec.Name, other),
				Code:    ErrDuplicateSite,
			})
			continue
		}
		seen[key] = spec.Name
	}

	return errs
}

// siteNamePattern matches catalog labels such as "sum" or "user-query".
var siteNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// expressionPattern matches "name" or dotted "a.b.c" references.
var expressionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
