package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/strtpl/internal/compiler"
	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/processor"
	"github.com/roach88/strtpl/internal/querysql"
	"github.com/roach88/strtpl/internal/store"
	"github.com/roach88/strtpl/internal/template"
	"github.com/roach88/strtpl/internal/testutil"
)

// Error codes recorded for failures that are not template errors.
const (
	CodeExec    = "EXEC"
	CodeUnknown = "ERROR"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and linkage IDs.
type Harness struct {
	store   *store.Store
	factory *template.Factory
	clock   *testutil.SeqClock
	logger  *slog.Logger
	text    map[string]*processor.Processor[string]
	sql     *querysql.Processor
	sites   map[string]*boundSite
	steps   []*template.Template
}

// boundSite is a registered site and its linkage.
type boundSite struct {
	spec    ir.SiteSpec
	linkage *template.Linkage
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for factory, processors and harness events.
// Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with its own factory,
// so linkage IDs and seq values start over for every run.
//
// Execution flow:
// 1. Register catalog and inline sites (one trace event each)
// 2. Execute flow steps, checking expect clauses
// 3. Evaluate assertions against the trace and database
//
// A returned error means the scenario itself is broken (bad site
// definition, unknown site reference, storage failure). Template errors
// raised by steps are recorded in the trace instead.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	procOpts := []processor.Option{
		processor.WithFastPath(scenario.fastPath()),
		processor.WithLogger(cfg.logger),
	}
	h := &Harness{
		store: st,
		factory: template.NewFactory(
			template.WithIDGenerator(testutil.NewSequenceGenerator("site")),
			template.WithLogger(cfg.logger),
		),
		clock:  testutil.NewSeqClock(0),
		logger: cfg.logger,
		text: map[string]*processor.Processor[string]{
			ProcessorSTR:   processor.NewSTR(procOpts...),
			ProcessorUpper: processor.NewUpper(procOpts...),
		},
		sql:   querysql.New(procOpts...),
		sites: make(map[string]*boundSite),
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.registerSites(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to register sites: %w", err)
	}

	for i, step := range scenario.Flow {
		if step.Render != "" && h.sites[step.Render] == nil {
			return nil, fmt.Errorf("flow step %d: unknown site %q", i, step.Render)
		}
	}

	for i := range scenario.Flow {
		if err := h.executeStep(ctx, i, &scenario.Flow[i], result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// registerSites compiles, validates and specializes every site.
// Catalog sites come first (sorted by name), then inline sites in order.
func (h *Harness) registerSites(ctx context.Context, scenario *Scenario, result *Result) error {
	var specs []ir.SiteSpec
	if scenario.Catalog != "" {
		catalog, err := compiler.LoadCatalogFile(scenario.Catalog)
		if err != nil {
			return err
		}
		specs = append(specs, catalog...)
	}
	for _, def := range scenario.Sites {
		spec, err := compiler.CompileSource(def.Name, def.Source, def.Types)
		if err != nil {
			return fmt.Errorf("site %s: %w", def.Name, err)
		}
		specs = append(specs, *spec)
	}

	for _, spec := range specs {
		if verrs := compiler.Validate(spec); len(verrs) > 0 {
			return fmt.Errorf("site %s: %w", spec.Name, verrs[0])
		}
		if _, dup := h.sites[spec.Name]; dup {
			return fmt.Errorf("site %s: defined twice", spec.Name)
		}

		l, err := h.factory.Site(spec.Fragments, spec.Types)
		if err != nil {
			return fmt.Errorf("site %s: %w", spec.Name, err)
		}

		seq := h.clock.Next()
		if err := h.store.WriteSite(ctx, store.SiteRecordFor(l, seq)); err != nil {
			return fmt.Errorf("site %s: %w", spec.Name, err)
		}
		h.sites[spec.Name] = &boundSite{spec: spec, linkage: l}
		result.AddSiteTrace(spec.Name, l.ID(), seq)

		h.logger.Debug("site registered",
			"site", spec.Name,
			"linkage_id", l.ID(),
			"seq", seq,
		)
	}
	return nil
}

// executeStep builds, processes and records one flow step.
//
// Only storage failures are returned; template errors become error
// events checked against the step's expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step *RenderStep, result *Result) error {
	t, err := h.buildStep(step)
	if err == nil && step.Flatten {
		t, err = template.Flatten(t)
	}
	// Failed steps leave a nil template; combining it later is a
	// NULL_REFERENCE.
	if err != nil {
		h.steps = append(h.steps, nil)
		h.recordFailure(i, step, err, result)
		return nil
	}
	h.steps = append(h.steps, t)

	ev, q, err := h.process(t, step)
	if err == nil && step.Exec {
		if _, execErr := h.store.ExecTemplate(ctx, q); execErr != nil {
			err = &execError{err: execErr}
		}
	}
	if err != nil {
		h.recordFailure(i, step, err, result)
		return nil
	}

	seq := h.clock.Next()
	rec := store.RenderRecordFor(seq, t, ev.Processor, ev.Path, ev.Result)
	if err := h.store.WriteRender(ctx, rec); err != nil {
		return fmt.Errorf("flow step %d: %w", i, err)
	}

	ev.Step = i
	ev.Site = step.Render
	ev.Values = rec.Values
	ev.Seq = seq
	result.AddRenderTrace(ev)
	checkExpect(i, step.Expect, &ev, result)

	h.logger.Debug("flow step completed",
		"step", i,
		"site", step.Render,
		"processor", ev.Processor,
		"path", ev.Path,
		"seq", seq,
	)
	return nil
}

// buildStep instantiates a site or combines earlier steps.
func (h *Harness) buildStep(step *RenderStep) (*template.Template, error) {
	if step.Render != "" {
		return h.instantiate(step.Render, step.Values)
	}

	items := make([]*template.Template, len(step.Combine))
	for j, ref := range step.Combine {
		if ref < 0 || ref >= len(h.steps) {
			return nil, template.NewInvalidArgument("harness", "combine refers to step %d, must be an earlier step", ref)
		}
		items[j] = h.steps[ref]
	}
	return template.Combine(items...)
}

// instantiate binds values to a site's expressions by name.
func (h *Harness) instantiate(name string, values map[string]any) (*template.Template, error) {
	bs, ok := h.sites[name]
	if !ok {
		return nil, template.NewInvalidArgument("harness", "unknown site %q", name)
	}

	types := bs.linkage.Types()
	args := make([]any, len(bs.spec.Expressions))
	for j, expr := range bs.spec.Expressions {
		raw, ok := values[expr]
		if !ok {
			return nil, template.NewInvalidArgument("harness", "site %s: missing value for %q", name, expr)
		}
		v, err := h.coerce(raw, types[j])
		if err != nil {
			return nil, err
		}
		args[j] = v
	}
	return bs.linkage.New(args...)
}

// coerce adapts a YAML-decoded value to a slot type. YAML yields int for
// every integer literal, so uint and float slots convert; template slots
// accept a nested {site, values} map. Other mismatches are left for
// Linkage.New to reject.
func (h *Harness) coerce(raw any, t ir.Type) (any, error) {
	switch t {
	case ir.TypeUint:
		if n, ok := raw.(int); ok {
			if n < 0 {
				return nil, template.NewInvalidArgument("harness", "negative value %d for uint slot", n)
			}
			return uint64(n), nil
		}
	case ir.TypeFloat:
		if n, ok := raw.(int); ok {
			return float64(n), nil
		}
	case ir.TypeTemplate:
		if m, ok := raw.(map[string]any); ok {
			site, _ := m["site"].(string)
			values, _ := m["values"].(map[string]any)
			return h.instantiate(site, values)
		}
	}
	return raw, nil
}

// process runs the step's processor. For sql steps the query is returned
// so it can be executed.
func (h *Harness) process(t *template.Template, step *RenderStep) (TraceEvent, querysql.Query, error) {
	name := step.Processor
	if name == "" {
		name = ProcessorSTR
	}

	if name == ProcessorSQL {
		res, err := h.sql.ProcessResult(t)
		if err != nil {
			return TraceEvent{}, querysql.Query{}, err
		}
		args := make([]string, len(res.Value.Args))
		for j, a := range res.Value.Args {
			args[j] = ir.ToString(a)
		}
		return TraceEvent{
			Processor: h.sql.Name(),
			Path:      res.Path,
			Result:    res.Value.SQL,
			Args:      args,
		}, res.Value, nil
	}

	p := h.text[name]
	res, err := p.ProcessResult(t)
	if err != nil {
		return TraceEvent{}, querysql.Query{}, err
	}
	return TraceEvent{
		Processor: p.Name(),
		Path:      res.Path,
		Result:    res.Value,
	}, querysql.Query{}, nil
}

// recordFailure adds an error event and checks it against the expectation.
func (h *Harness) recordFailure(i int, step *RenderStep, err error, result *Result) {
	code := errorCode(err)
	result.AddErrorTrace(i, step.Render, code)

	h.logger.Debug("flow step failed",
		"step", i,
		"site", step.Render,
		"code", code,
		"error", err,
	)

	switch {
	case step.Expect == nil || step.Expect.Error == "":
		result.AddError(fmt.Sprintf("flow[%d]: unexpected error: %v", i, err))
	case step.Expect.Error != code:
		result.AddError(fmt.Sprintf("flow[%d]: expected error %s, got %s: %v", i, step.Expect.Error, code, err))
	}
}

// checkExpect compares a successful render with the step's expectation.
func checkExpect(i int, exp *ExpectClause, ev *TraceEvent, result *Result) {
	if exp == nil {
		return
	}
	if exp.Error != "" {
		result.AddError(fmt.Sprintf("flow[%d]: expected error %s, got result %q", i, exp.Error, ev.Result))
		return
	}
	if exp.Result != "" && exp.Result != ev.Result {
		result.AddError(fmt.Sprintf("flow[%d]: expected result %q, got %q", i, exp.Result, ev.Result))
	}
	if exp.Path != "" && ir.Path(exp.Path) != ev.Path {
		result.AddError(fmt.Sprintf("flow[%d]: expected path %s, got %s", i, exp.Path, ev.Path))
	}
	if exp.Args != nil && !equalStrings(exp.Args, ev.Args) {
		result.AddError(fmt.Sprintf("flow[%d]: expected args %v, got %v", i, exp.Args, ev.Args))
	}
}

// execError marks a failure executing an sql step against the database.
type execError struct {
	err error
}

func (e *execError) Error() string { return "exec: " + e.err.Error() }
func (e *execError) Unwrap() error { return e.err }

// errorCode classifies a step failure.
func errorCode(err error) string {
	var te *template.Error
	if errors.As(err, &te) {
		return string(te.Code)
	}
	var ee *execError
	if errors.As(err, &ee) {
		return CodeExec
	}
	return CodeUnknown
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
