package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strtpl/internal/compiler"
	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/processor"
	"github.com/roach88/strtpl/internal/store"
	"github.com/roach88/strtpl/internal/template"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Set       []string
	Types     []string
	Processor string
	Name      string
	Database  string
	Repeat    int
}

// RenderResult is the outcome of a render command.
type RenderResult struct {
	Site      string   `json:"site"`
	LinkageID string   `json:"linkage_id"`
	Processor string   `json:"processor"`
	Path      ir.Path  `json:"path"`
	Result    string   `json:"result"`
	Values    []string `json:"values"`
	Seq       int64    `json:"seq,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <source>",
		Short: "Render a template source with a string processor",
		Long: `Parse template source, bind values and process it.

Embedded expressions are written \{name}; each needs a --set binding.
Values are decoded as YAML scalars unless --type declares the slot as a
string. With --db every render is appended to the render log.

Examples:
  strtpl render 'hello \{name}' --set name=world
  strtpl render '\{n} items' --set n=3 --type int --processor upper
  strtpl render 'hi \{who}' --set who=ana --db ./strtpl.db --repeat 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "bind an embedded expression (name=value)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "slot types in order (any|string|int|uint|float|bool|template)")
	cmd.Flags().StringVarP(&opts.Processor, "processor", "p", "str", fmt.Sprintf("string processor %v", processor.Names()))
	cmd.Flags().StringVar(&opts.Name, "name", "cli", "site name used in logs")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append renders to this SQLite render log")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "render the same site this many times")

	return cmd
}

func runRender(opts *RenderOptions, source string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.config()

	if opts.Repeat < 1 {
		return outputRenderError(formatter, ErrCodeGeneric, fmt.Sprintf("--repeat must be at least 1, got %d", opts.Repeat))
	}

	spec, err := compiler.CompileSource(opts.Name, source, opts.Types)
	if err != nil {
		code, message := parseCompileError(err)
		return outputRenderError(formatter, code, message)
	}
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		return outputRenderError(formatter, verrs[0].Code, verrs[0].Message)
	}

	values, err := parseSetFlags(opts.Set)
	if err != nil {
		return outputRenderError(formatter, ErrCodeSiteValue, err.Error())
	}
	args, err := bindValues(spec, values)
	if err != nil {
		return outputRenderError(formatter, ErrCodeSiteValue, err.Error())
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputRenderError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
		}
		defer st.Close()
	}

	factory, err := siteFactory(ctx, st, spec,
		template.WithMaxSlots(cfg.MaxSlots),
		template.WithLogger(logger),
	)
	if err != nil {
		return outputRenderError(formatter, ErrCodeDatabase, err.Error())
	}

	proc, err := processor.Lookup(opts.Processor,
		processor.WithFastPath(cfg.FastPath),
		processor.WithLogger(logger),
	)
	if err != nil {
		return outputRenderError(formatter, ErrCodeGeneric, err.Error())
	}

	var out RenderResult
	for i := 0; i < opts.Repeat; i++ {
		// Each pass asks the factory again, as a call site evaluated repeatedly would.
		l, err := factory.Site(spec.Fragments, spec.Types)
		if err != nil {
			return outputRenderError(formatter, siteErrorCode(err), err.Error())
		}
		t, err := l.New(args...)
		if err != nil {
			return outputRenderError(formatter, siteErrorCode(err), err.Error())
		}

		res, err := proc.ProcessResult(t)
		if err != nil {
			return outputRenderError(formatter, ErrCodeProcess, err.Error())
		}
		out = RenderResult{
			Site:      spec.Name,
			LinkageID: l.ID(),
			Processor: proc.Name(),
			Path:      res.Path,
			Result:    res.Value,
			Values:    store.RenderRecordFor(0, t, proc.Name(), res.Path, res.Value).Values,
		}
		logger.Debug("rendered", "site", spec.Name, "linkage_id", l.ID(), "path", res.Path)

		if st != nil {
			seq, err := logRender(ctx, st, t, proc.Name(), res.Path, res.Value)
			if err != nil {
				return outputRenderError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to log render: %v", err))
			}
			out.Seq = seq
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	fmt.Fprintln(formatter.Writer, out.Result)
	formatter.VerboseLog("site=%s linkage=%s processor=%s path=%s", out.Site, out.LinkageID, out.Processor, out.Path)
	return nil
}

// outputRenderError reports a render failure (exit code 2).
func outputRenderError(formatter *OutputFormatter, code, message string) error {
	return formatter.Fail(ExitCommandError, code, message)
}
