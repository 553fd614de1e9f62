package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/strtpl/internal/ir"
)

// CompileSource builds a SiteSpec from template source text and optional
// slot type names. With no types every slot is "any".
func CompileSource(name, source string, types []string) (*ir.SiteSpec, error) {
	fragments, exprs, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	sig := ir.AnySignature(len(exprs))
	if len(types) > 0 {
		sig, err = ir.ParseSignature(types)
		if err != nil {
			return nil, &CompileError{Field: "types", Message: err.Error()}
		}
		if len(sig) != len(exprs) {
			return nil, &CompileError{
				Field:   "types",
				Message: fmt.Sprintf("types has %d entries, source embeds %d values", len(sig), len(exprs)),
			}
		}
	}

	return &ir.SiteSpec{
		Name:        name,
		Source:      source,
		Fragments:   fragments,
		Expressions: exprs,
		Types:       sig,
	}, nil
}

// LoadCatalogFile compiles the "site" struct of a single CUE file.
func LoadCatalogFile(path string) ([]ir.SiteSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	sites := v.LookupPath(cue.ParsePath("site"))
	if !sites.Exists() {
		return nil, &CompileError{Field: "site", Message: fmt.Sprintf("no site definitions in %s", path)}
	}
	return CompileCatalog(sites)
}
