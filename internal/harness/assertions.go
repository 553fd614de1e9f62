package harness

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/querysql"
	"github.com/roach88/strtpl/internal/store"
)

// sqlIdentifier matches the table and column names final_state accepts.
// Identifiers are spliced into the query text; values are always bound.
var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError reports a failed assertion together with the trace it
// was evaluated against.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assertion failed: %s\n  Expected: %s\n  Actual: %s\n", e.Type, e.Expected, e.Actual)
	if len(e.Trace) == 0 {
		return b.String()
	}

	b.WriteString("\nFull trace:\n")
	for i, ev := range e.Trace {
		switch ev.Type {
		case EventRender:
			fmt.Fprintf(&b, "  [%d] render %s %s/%s %q\n", i+1, ev.Site, ev.Processor, ev.Path, ev.Result)
		case EventError:
			fmt.Fprintf(&b, "  [%d] error %s %s\n", i+1, ev.Site, ev.Code)
		}
	}
	return b.String()
}

// assertRenderContains checks that the trace has a render of the site that
// matches every narrowing field the assertion sets.
func assertRenderContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != EventRender || event.Site != assertion.Site {
			continue
		}
		if assertion.Processor != "" && event.Processor != assertion.Processor {
			continue
		}
		if assertion.Path != "" && string(event.Path) != assertion.Path {
			continue
		}
		if assertion.Result != "" && event.Result != assertion.Result {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertRenderContains,
		Expected: describeRender(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// describeRender formats the render an assertion looks for.
func describeRender(a Assertion) string {
	parts := []string{"site " + a.Site}
	if a.Processor != "" {
		parts = append(parts, "processor "+a.Processor)
	}
	if a.Path != "" {
		parts = append(parts, "path "+a.Path)
	}
	if a.Result != "" {
		parts = append(parts, fmt.Sprintf("result %q", a.Result))
	}
	return "render of " + strings.Join(parts, ", ")
}

// assertRenderOrder checks that the first renders of the listed sites
// appear in order. Renders need not be consecutive.
func assertRenderOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != EventRender {
			continue
		}
		if _, seen := positions[event.Site]; !seen {
			positions[event.Site] = i + 1 // 1-indexed for readability
		}
	}

	for _, site := range assertion.Sites {
		if positions[site] == 0 {
			return &AssertionError{
				Type:     AssertRenderOrder,
				Expected: fmt.Sprintf("renders of all sites: %v", assertion.Sites),
				Actual:   fmt.Sprintf("missing site: %s", site),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Sites); i++ {
		prev := assertion.Sites[i-1]
		curr := assertion.Sites[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertRenderOrder,
				Expected: fmt.Sprintf("sites in order: %v", assertion.Sites),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertRenderCount checks that the site was rendered exactly Count times,
// on the given path if one is set.
func assertRenderCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type != EventRender || event.Site != assertion.Site {
			continue
		}
		if assertion.Path != "" && string(event.Path) != assertion.Path {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Site
		if assertion.Path != "" {
			what += " on the " + assertion.Path + " path"
		}
		return &AssertionError{
			Type:     AssertRenderCount,
			Expected: fmt.Sprintf("%d renders of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d renders", count),
			Trace:    trace,
		}
	}

	return nil
}

// finalStateQuery builds the parameterized SELECT for a final_state
// assertion. Where keys are sorted so the same assertion always produces
// the same statement.
func finalStateQuery(a Assertion) (querysql.Query, error) {
	if !sqlIdentifier.MatchString(a.Table) {
		return querysql.Query{}, fmt.Errorf("invalid table name %q: must match %s", a.Table, sqlIdentifier)
	}

	q := querysql.Query{SQL: "SELECT * FROM " + a.Table}
	keys := sortedKeys(a.Where)
	for i, col := range keys {
		if !sqlIdentifier.MatchString(col) {
			return querysql.Query{}, fmt.Errorf("invalid column name %q in where clause: must match %s", col, sqlIdentifier)
		}
		if i == 0 {
			q.SQL += " WHERE "
		} else {
			q.SQL += " AND "
		}
		q.SQL += col + " = ?"
		q.Args = append(q.Args, bindable(a.Where[col]))
	}
	return q, nil
}

// bindable passes driver-native scalars through and stringifies the rest.
func bindable(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	}
	return ir.ToString(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// describeWhere renders where conditions for failure messages.
func describeWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// assertFinalState selects the single row of Table matching Where and
// checks the columns named in Expect. Columns not in Expect are ignored.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	q, err := finalStateQuery(a)
	if err != nil {
		return err
	}

	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertFinalState, Expected: expected, Actual: actual}
	}

	table, err := st.QueryTable(ctx, q)
	if err != nil {
		return fail("query table "+a.Table, fmt.Sprintf("query error: %v", err))
	}
	switch len(table.Rows) {
	case 0:
		return fail(fmt.Sprintf("row in %s where %s", a.Table, describeWhere(a.Where)), "row not found")
	case 1:
	default:
		return fail(
			fmt.Sprintf("exactly one row in %s where %s", a.Table, describeWhere(a.Where)),
			fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(table.Rows)),
		)
	}

	row := table.Rows[0]
	for _, col := range sortedKeys(a.Expect) {
		want := a.Expect[col]
		idx := slices.Index(table.Columns, col)
		if idx < 0 {
			return fail(
				fmt.Sprintf("field %q to exist", col),
				fmt.Sprintf("field %q not present in result columns: %v", col, table.Columns),
			)
		}
		if got := row[idx]; !cellEquals(want, got) {
			return fail(
				fmt.Sprintf("field %q = %v (type %T)", col, want, want),
				fmt.Sprintf("field %q = %v (type %T)", col, got, got),
			)
		}
	}
	return nil
}

// cellEquals compares a YAML-decoded expectation with a SQLite cell.
// SQLite returns integers as int64, booleans as 0/1 and text as string.
func cellEquals(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}

	switch w := want.(type) {
	case string:
		switch g := got.(type) {
		case string:
			return w == g
		case []byte:
			return w == string(g)
		}
	case int:
		return asInt64(got) == int64(w) && isInteger(got)
	case int64:
		return asInt64(got) == w && isInteger(got)
	case float64:
		switch g := got.(type) {
		case float64:
			return w == g
		case int64:
			return w == float64(g)
		}
	case bool:
		switch g := got.(type) {
		case bool:
			return w == g
		case int64:
			return w == (g != 0)
		}
	}
	return false
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int64:
		return true
	}
	return false
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

// AssertionContext carries the database final_state assertions query.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions checks every assertion against the result and
// returns one message per failure, in assertion order. actx may be nil
// when no assertion needs the database.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			if _, ok := err.(*AssertionError); !ok {
				err = fmt.Errorf("assertion[%d]: %w", i, err)
			}
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRenderContains:
		return assertRenderContains(trace, a)
	case AssertRenderOrder:
		return assertRenderOrder(trace, a)
	case AssertRenderCount:
		return assertRenderCount(trace, a)
	case AssertFinalState:
		if actx == nil || actx.Store == nil {
			return fmt.Errorf("final_state requires database context")
		}
		return assertFinalState(actx.Ctx, actx.Store, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
