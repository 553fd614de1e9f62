package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/strtpl/internal/compiler"
	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/processor"
	"github.com/roach88/strtpl/internal/querysql"
	"github.com/roach88/strtpl/internal/store"
	"github.com/roach88/strtpl/internal/template"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Set      []string
	Types    []string
	Exec     bool
	Log      bool
}

// QueryResult is the outcome of a query command.
type QueryResult struct {
	SQL          string       `json:"sql"`
	Args         []string     `json:"args"`
	Path         ir.Path      `json:"path"`
	Table        *store.Table `json:"table,omitempty"`
	RowsAffected int64        `json:"rows_affected,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql-source>",
		Short: "Run an SQL template against a database",
		Long: `Process an SQL template into a parameterized statement and run it.

Every embedded value becomes a ? placeholder bound as a parameter, so
values never reach the SQL text. Nested template values (--type template)
are spliced into the statement before binding.

Examples:
  strtpl query --db ./app.db 'SELECT * FROM users WHERE name = \{name}' --set name=ana
  strtpl query --db ./app.db --exec 'DELETE FROM users WHERE id = \{id}' --set id=7 --type int`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "bind an embedded expression (name=value)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "slot types in order (any|string|int|uint|float|bool|template)")
	cmd.Flags().BoolVar(&opts.Exec, "exec", false, "execute as a statement instead of a query")
	cmd.Flags().BoolVar(&opts.Log, "log", false, "append the processed statement to the render log")

	return cmd
}

func runQuery(opts *QueryOptions, source string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.config()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}

	spec, err := compiler.CompileSource("query", source, opts.Types)
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

	st, err := store.Open(dbPath)
	if err != nil {
		return outputRenderError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer st.Close()

	factory, err := siteFactory(ctx, st, spec,
		template.WithMaxSlots(cfg.MaxSlots),
		template.WithLogger(logger),
	)
	if err != nil {
		return outputRenderError(formatter, ErrCodeDatabase, err.Error())
	}
	l, err := factory.Site(spec.Fragments, spec.Types)
	if err != nil {
		return outputRenderError(formatter, siteErrorCode(err), err.Error())
	}
	t, err := l.New(args...)
	if err != nil {
		return outputRenderError(formatter, siteErrorCode(err), err.Error())
	}

	sqlProc := querysql.New(
		processor.WithFastPath(cfg.FastPath),
		processor.WithLogger(logger),
	)
	res, err := sqlProc.ProcessResult(t)
	if err != nil {
		return outputRenderError(formatter, ErrCodeProcess, err.Error())
	}
	q := res.Value

	out := QueryResult{SQL: q.SQL, Args: make([]string, len(q.Args)), Path: res.Path}
	for i, a := range q.Args {
		out.Args[i] = ir.ToString(a)
	}
	logger.Debug("query processed", "sql", q.SQL, "args", len(q.Args), "path", res.Path)

	if opts.Exec {
		r, err := st.ExecTemplate(ctx, q)
		if err != nil {
			return outputRenderError(formatter, ErrCodeDatabase, err.Error())
		}
		out.RowsAffected, _ = r.RowsAffected()
	} else {
		out.Table, err = st.QueryTable(ctx, q)
		if err != nil {
			return outputRenderError(formatter, ErrCodeDatabase, err.Error())
		}
	}

	if opts.Log {
		if _, err := logRender(ctx, st, t, sqlProc.Name(), res.Path, q.SQL); err != nil {
			return outputRenderError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to log render: %v", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	formatter.VerboseLog("%s %v", out.SQL, out.Args)
	if out.Table == nil {
		fmt.Fprintf(formatter.Writer, "✓ %d row(s) affected\n", out.RowsAffected)
		return nil
	}
	return writeTable(formatter, out.Table)
}

// writeTable prints a result table with aligned columns.
func writeTable(formatter *OutputFormatter, table *store.Table) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	for i, c := range table.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range table.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, ir.ToString(cell))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "(%d row(s))\n", len(table.Rows))
	return nil
}
