package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strtpl/internal/compiler"
	"github.com/roach88/strtpl/internal/ir"
)

// LoadMode controls how LoadCatalog handles site compile errors.
type LoadMode int

const (
	// LoadModeFailFast stops at the first site that fails to compile.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every site and reports all failures.
	LoadModeCollectAll
)

// LoadResult holds the sites compiled from a catalog directory.
type LoadResult struct {
	Sites     []ir.SiteSpec // sorted by name
	FileCount int
}

// LoadError is a catalog loading failure with an error code and, when CUE
// reported one, a source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loadFailed(code, format string, args ...any) []error {
	return []error{&LoadError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// LoadCatalog loads the CUE package in dir and compiles every entry of its
// top-level "site" struct.
//
// Directory, load and build failures return a nil result. Site compile
// failures return the sites that did compile alongside the errors.
func LoadCatalog(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, loadFailed(ErrCodeNotFound, "catalog directory not found: %s", dir)
	case err != nil:
		return nil, loadFailed(ErrCodeNotFound, "error accessing catalog directory: %v", err)
	case !info.IsDir():
		return nil, loadFailed(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, loadFailed(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(files) == 0 {
		return nil, loadFailed(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, loadFailed(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return nil, loadFailed(ErrCodeLoadFailed, "loading CUE files: %v", err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, loadFailed(ErrCodeBuildFailed, "building CUE value: %v", err)
	}

	result := &LoadResult{FileCount: len(files)}

	sites := value.LookupPath(cue.ParsePath("site"))
	if !sites.Exists() {
		return result, loadFailed(ErrCodeNoSites, "no site definitions found in catalog")
	}
	iter, err := sites.Fields()
	if err != nil {
		return result, loadFailed(ErrCodeGeneric, "iterating sites: %v", err)
	}

	var errs []error
	for iter.Next() {
		spec, err := compiler.CompileSite(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "site."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Sites = append(result.Sites, *spec)
	}
	if len(result.Sites) == 0 && len(errs) == 0 {
		return result, loadFailed(ErrCodeNoSites, "site struct is empty")
	}

	slices.SortFunc(result.Sites, func(a, b ir.SiteSpec) int { return strings.Compare(a.Name, b.Name) })
	return result, errs
}

// FindCUEFiles returns every .cue file under dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return err
	})
	return files, err
}

// convertCompileError maps a compiler error onto a LoadError, keeping its
// CUE position. where prefixes the message, e.g. "site.greet".
func convertCompileError(err error, where string) *LoadError {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", where, err)}
	}
	return &LoadError{
		Code:    MapFieldToErrorCode(ce.Field),
		Message: fmt.Sprintf("%s: %s", where, ce.Message),
		Pos:     ce.Pos,
	}
}

// Error code constants - unified across all CLI commands.
// Catalog validation codes (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoSites     = "E008" // Catalog defines no sites

	// Site compile errors
	ErrCodeSource    = "E010" // Missing or malformed source
	ErrCodeTypes     = "E011" // Invalid types list
	ErrCodeCUE       = "E012" // CUE evaluation error inside a site
	ErrCodeSiteValue = "E013" // Invalid --set value or template argument

	// Runtime errors
	ErrCodeProcess  = "E020" // Processor failed
	ErrCodeDatabase = "E021" // Database open/read/write failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "source":
		return ErrCodeSource
	case "types":
		return ErrCodeTypes
	case "cue":
		return ErrCodeCUE
	case "site":
		return ErrCodeNoSites
	default:
		return ErrCodeGeneric
	}
}
