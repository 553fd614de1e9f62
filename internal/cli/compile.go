package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strtpl/internal/compiler"
	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // write compiled sites to file
}

// CompiledSite summarizes one specialized catalog site.
type CompiledSite struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Arity       int      `json:"arity"`
	Types       []string `json:"types"`
	Expressions []string `json:"expressions"`
	LinkageID   string   `json:"linkage_id"`
	SiteKey     string   `json:"site_key"`
}

// CompilationResult holds the compiled catalog.
type CompilationResult struct {
	Sites    []CompiledSite `json:"sites"`
	Linkages int            `json:"linkages"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile and specialize a site catalog",
		Long: `Compile a CUE site catalog and specialize every site.

Each entry of the top-level "site" struct declares a template source and
optional slot types:

  site: greet: source: "hello \\{name}"
  site: total: { source: "\\{n} items", types: ["int"] }

Every site is validated, then specialized into a linkage. Sites with the
same fragments and types share one linkage and are reported as E105.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled sites as JSON to file")

	return cmd
}

func runCompile(opts *CompileOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.config()

	// Collect-all so every broken site is reported at once
	loadResult, loadErrors := LoadCatalog(catalogDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, catalogDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	if verrs := compiler.Validate(loadResult.Sites); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = &LoadError{Code: v.Code, Message: fmt.Sprintf("%s: %s", v.Field, v.Message)}
		}
		return outputCompileErrors(formatter, errs)
	}

	factory := template.NewFactory(
		template.WithMaxSlots(cfg.MaxSlots),
		template.WithLogger(logger),
	)

	result := &CompilationResult{Sites: make([]CompiledSite, 0, len(loadResult.Sites))}
	for _, spec := range loadResult.Sites {
		formatter.VerboseLog("Specializing site: %s", spec.Name)
		l, err := factory.Site(spec.Fragments, spec.Types)
		if err != nil {
			return outputCompileError(formatter, siteErrorCode(err), fmt.Sprintf("site %s: %v", spec.Name, err))
		}
		result.Sites = append(result.Sites, compiledSite(spec, l))
	}
	result.Linkages = factory.Len()

	logger.Info("catalog compiled", "dir", catalogDir, "sites", len(result.Sites), "linkages", result.Linkages)

	if opts.Output != "" {
		if err := writeSitesToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func compiledSite(spec ir.SiteSpec, l *template.Linkage) CompiledSite {
	return CompiledSite{
		Name:        spec.Name,
		Source:      spec.Source,
		Arity:       l.Arity(),
		Types:       l.Types().Names(),
		Expressions: spec.Expressions,
		LinkageID:   l.ID(),
		SiteKey:     l.Key(),
	}
}

// siteErrorCode maps a template error to a CLI error code.
func siteErrorCode(err error) string {
	switch {
	case template.IsInvalidArgument(err), template.IsNullReference(err):
		return ErrCodeSiteValue
	case template.IsLinkageError(err):
		return ErrCodeTypes
	default:
		return ErrCodeGeneric
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d site(s) into %d linkage(s)\n\n", len(result.Sites), result.Linkages)

	fmt.Fprintln(w, "Sites:")
	for _, s := range result.Sites {
		fmt.Fprintf(w, "  %s: %d slot(s) %v → %s\n", s.Name, s.Arity, s.Types, s.LinkageID)
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled sites to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	return formatter.Fail(ExitCommandError, code, message)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		if err := formatter.Respond(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSitesToFile writes the compiled catalog as indented JSON.
func writeSitesToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sites: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
