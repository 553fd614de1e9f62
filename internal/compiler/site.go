package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strtpl/internal/ir"
)

// CompileSite parses a CUE value into a SiteSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the site struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`site: sum: { source: "\\{x} + \\{y}", types: ["int", "int"] }`)
//	spec, err := CompileSite(v.LookupPath(cue.ParsePath("site.sum")))
func CompileSite(v cue.Value) (*ir.SiteSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SiteSpec{}

	// Site name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
		if unquoted, err := strconv.Unquote(spec.Name); err == nil {
			spec.Name = unquoted
		}
	}

	// Parse source (required)
	sourceVal := v.LookupPath(cue.ParsePath("source"))
	if !sourceVal.Exists() {
		return nil, &CompileError{
			Field:   "source",
			Message: "source is required",
			Pos:     v.Pos(),
		}
	}
	source, err := sourceVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Source = source

	spec.Fragments, spec.Expressions, err = ParseSource(source)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			ce.Pos = sourceVal.Pos()
		}
		return nil, err
	}

	// Parse types (optional, defaults to any for every slot)
	spec.Types, err = parseTypes(v, len(spec.Expressions))
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// parseTypes reads the optional types list and checks it against the
// number of embedded expressions.
func parseTypes(v cue.Value, arity int) (ir.Signature, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return ir.AnySignature(arity), nil
	}

	iter, err := typesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var sig ir.Signature
	for iter.Next() {
		elem := iter.Value()
		name, err := elem.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t, err := ir.ParseType(name)
		if err != nil {
			return nil, &CompileError{
				Field:   "types",
				Message: fmt.Sprintf("slot %d: %v", len(sig), err),
				Pos:     elem.Pos(),
			}
		}
		sig = append(sig, t)
	}

	if len(sig) != arity {
		return nil, &CompileError{
			Field:   "types",
			Message: fmt.Sprintf("types has %d entries, source embeds %d values", len(sig), arity),
			Pos:     typesVal.Pos(),
		}
	}
	if sig == nil {
		sig = ir.Signature{}
	}
	return sig, nil
}

// CompileCatalog compiles every field of a "site" struct, sorted by name.
// Returns the first compile error, annotated with the failing site.
func CompileCatalog(sites cue.Value) ([]ir.SiteSpec, error) {
	iter, err := sites.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.SiteSpec
	for iter.Next() {
		spec, err := CompileSite(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("site.%s: %w", iter.Label(), err)
		}
		specs = append(specs, *spec)
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
