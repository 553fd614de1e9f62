package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Limit    int
	Site     string // optional - filter to one linkage ID
}

// TraceSite is one specialized site in the log.
type TraceSite struct {
	Seq   int64    `json:"seq"`
	ID    string   `json:"id"`
	Types []string `json:"types"`
	Shape string   `json:"shape"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Sites    []TraceSite       `json:"sites"`
	Timeline []ir.RenderRecord `json:"timeline"`
	Stats    TraceStats        `json:"stats"`
}

// TraceStats holds summary statistics for the render log.
type TraceStats struct {
	Renders int               `json:"renders"`
	Fast    int               `json:"fast"`
	Slow    int               `json:"slow"`
	PerSite []store.PathStats `json:"per_site"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the render log",
		Long: `Show specialized sites and the render log of a database.

The output includes:
- Sites: every linkage written to the log, in seq order
- Timeline: the most recent renders with their processing path
- Stats: fast and slow path counts per site

Examples:
  strtpl trace --db ./strtpl.db
  strtpl trace --db ./strtpl.db --limit 20
  strtpl trace --db ./strtpl.db --site 0192f1c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "show at most this many recent renders (0 for all)")
	cmd.Flags().StringVar(&opts.Site, "site", "", "only show renders of this linkage ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.config().Database
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read render log", err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func buildTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	var result TraceResult

	records, err := st.ReadAllSites(ctx)
	if err != nil {
		return result, err
	}
	result.Sites = make([]TraceSite, 0, len(records))
	for _, rec := range records {
		if opts.Site != "" && rec.ID != opts.Site {
			continue
		}
		result.Sites = append(result.Sites, TraceSite{
			Seq:   rec.Seq,
			ID:    rec.ID,
			Types: rec.Types.Names(),
			Shape: siteShape(rec.Fragments),
		})
	}

	if opts.Site != "" {
		result.Timeline, err = st.ReadRendersForSite(ctx, opts.Site)
		if err == nil && opts.Limit > 0 && len(result.Timeline) > opts.Limit {
			result.Timeline = result.Timeline[len(result.Timeline)-opts.Limit:]
		}
	} else {
		result.Timeline, err = st.ReadRenders(ctx, opts.Limit)
	}
	if err != nil {
		return result, err
	}

	stats, err := st.RenderStats(ctx)
	if err != nil {
		return result, err
	}
	result.Stats.PerSite = make([]store.PathStats, 0, len(stats))
	for _, s := range stats {
		if opts.Site != "" && s.SiteID != opts.Site {
			continue
		}
		result.Stats.PerSite = append(result.Stats.PerSite, s)
		result.Stats.Fast += s.Fast
		result.Stats.Slow += s.Slow
	}
	result.Stats.Renders = result.Stats.Fast + result.Stats.Slow

	return result, nil
}

// siteShape renders fragments with a placeholder per slot.
func siteShape(fragments []string) string {
	return strings.Join(fragments, "\\{…}")
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.Respond(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintln(w, "=== Sites ===")
	if len(result.Sites) == 0 {
		fmt.Fprintln(w, "  (no sites)")
	}
	for _, s := range result.Sites {
		fmt.Fprintf(w, "  [%d] %s %q %v\n", s.Seq, truncateID(s.ID), s.Shape, s.Types)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no renders)")
	}
	for _, r := range result.Timeline {
		site := "-"
		if r.SiteID != "" {
			site = truncateID(r.SiteID)
		}
		fmt.Fprintf(w, "  [%d] %s %s %s %q\n", r.Seq, r.Processor, r.Path, site, r.Result)
		if verbose && len(r.Values) > 0 {
			fmt.Fprintf(w, "       Values: [%s]\n", strings.Join(r.Values, ", "))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Renders: %d (fast %d, slow %d)\n", result.Stats.Renders, result.Stats.Fast, result.Stats.Slow)
	for _, s := range result.Stats.PerSite {
		site := "(unlinked)"
		if s.SiteID != "" {
			site = truncateID(s.SiteID)
		}
		fmt.Fprintf(w, "  %s: fast %d, slow %d\n", site, s.Fast, s.Slow)
	}

	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
