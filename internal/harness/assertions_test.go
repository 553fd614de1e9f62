package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventSite, Step: -1, Site: "a", LinkageID: "site-0001", Seq: 1},
		{Type: EventSite, Step: -1, Site: "b", LinkageID: "site-0002", Seq: 2},
		{Type: EventRender, Step: 0, Site: "a", Processor: "str", Path: ir.PathFast, Result: "A1", Seq: 3},
		{Type: EventRender, Step: 1, Site: "b", Processor: "upper", Path: ir.PathFast, Result: "B", Seq: 4},
		{Type: EventRender, Step: 2, Site: "a", Processor: "upper", Path: ir.PathSlow, Result: "A2", Seq: 5},
		{Type: EventError, Step: 3, Site: "b", Code: "INVALID_ARGUMENT"},
	}
}

func TestAssertRenderContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		pass      bool
	}{
		{"site only", Assertion{Site: "a"}, true},
		{"processor", Assertion{Site: "a", Processor: "upper"}, true},
		{"path", Assertion{Site: "a", Path: "slow"}, true},
		{"result", Assertion{Site: "b", Result: "B"}, true},
		{"all fields", Assertion{Site: "a", Processor: "str", Path: "fast", Result: "A1"}, true},
		{"wrong combination", Assertion{Site: "a", Processor: "str", Path: "slow"}, false},
		{"missing site", Assertion{Site: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertRenderContains(trace, tt.assertion)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertRenderContains, ae.Type)
			assert.Equal(t, "not found in trace", ae.Actual)
		})
	}
}

func TestAssertRenderOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertRenderOrder(trace, Assertion{Sites: []string{"a", "b"}}))

	err := assertRenderOrder(trace, Assertion{Sites: []string{"b", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b (pos 4) should be before a (pos 3)")

	err = assertRenderOrder(trace, Assertion{Sites: []string{"a", "c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing site: c")
}

func TestAssertRenderCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertRenderCount(trace, Assertion{Site: "a", Count: 2}))
	assert.NoError(t, assertRenderCount(trace, Assertion{Site: "a", Path: "fast", Count: 1}))
	assert.NoError(t, assertRenderCount(trace, Assertion{Site: "b", Count: 1}))
	assert.NoError(t, assertRenderCount(trace, Assertion{Site: "c", Count: 0}))

	err := assertRenderCount(trace, Assertion{Site: "a", Path: "slow", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 renders of a on the slow path")
	assert.Contains(t, err.Error(), "1 renders")
}

func TestAssertionError_ListsTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRenderCount,
		Expected: "x",
		Actual:   "y",
		Trace:    sampleTrace(),
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: render_count")
	assert.Contains(t, msg, `render a str/fast "A1"`)
	assert.Contains(t, msg, "error b INVALID_ARGUMENT")
	assert.NotContains(t, msg, "site-0001")
}

func openAssertionStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	_, err = st.DB().Exec(`CREATE TABLE widgets (id TEXT, qty INTEGER, ok BOOLEAN, price REAL)`)
	require.NoError(t, err)
	_, err = st.DB().Exec(`INSERT INTO widgets VALUES ('w1', 3, 1, 2.5), ('w2', 3, 0, 1.0)`)
	require.NoError(t, err)
	return st, ctx
}

func TestAssertFinalState(t *testing.T) {
	st, ctx := openAssertionStore(t)

	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"match", Assertion{Table: "widgets", Where: map[string]any{"id": "w1"}, Expect: map[string]any{"qty": 3, "ok": true, "price": 2.5}}, ""},
		{"int64 and false", Assertion{Table: "widgets", Where: map[string]any{"id": "w2"}, Expect: map[string]any{"qty": int64(3), "ok": false}}, ""},
		{"value mismatch", Assertion{Table: "widgets", Where: map[string]any{"id": "w1"}, Expect: map[string]any{"qty": 4}}, `field "qty" = 4`},
		{"missing column", Assertion{Table: "widgets", Where: map[string]any{"id": "w1"}, Expect: map[string]any{"color": "red"}}, "not present in result columns"},
		{"no row", Assertion{Table: "widgets", Where: map[string]any{"id": "w9"}, Expect: map[string]any{"qty": 3}}, "row not found"},
		{"ambiguous", Assertion{Table: "widgets", Where: map[string]any{"qty": 3}, Expect: map[string]any{"qty": 3}}, "2 rows matched"},
		{"bad table name", Assertion{Table: "widgets; DROP TABLE widgets", Expect: map[string]any{"qty": 3}}, "invalid table name"},
		{"bad column name", Assertion{Table: "widgets", Where: map[string]any{"id = id OR 1": 1}, Expect: map[string]any{"qty": 3}}, "invalid column name"},
		{"unknown table", Assertion{Table: "gadgets", Expect: map[string]any{"qty": 3}}, "query error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFinalStateQuery(t *testing.T) {
	q, err := finalStateQuery(Assertion{Table: "users", Where: map[string]any{"name": "ana", "age": 7, "tags": []any{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE age = ? AND name = ? AND tags = ?", q.SQL)
	assert.Equal(t, []any{7, "ana", ir.ToString([]any{"x"})}, q.Args)

	q, err = finalStateQuery(Assertion{Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", q.SQL)
	assert.Empty(t, q.Args)
}

func TestCellEquals(t *testing.T) {
	tests := []struct {
		want, got any
		equal     bool
	}{
		{nil, nil, true},
		{nil, int64(1), false},
		{"x", nil, false},
		{"x", "x", true},
		{"x", []byte("x"), true},
		{"1", int64(1), false},
		{3, int64(3), true},
		{int64(3), int64(4), false},
		{3, 3.0, false},
		{2.0, int64(2), true},
		{2.5, 2.5, true},
		{true, int64(1), true},
		{false, int64(0), true},
		{false, true, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.equal, cellEquals(tt.want, tt.got), "cellEquals(%#v, %#v)", tt.want, tt.got)
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRenderCount, Site: "a", Count: 2},
		{Type: AssertRenderCount, Site: "a", Count: 5},
		{Type: AssertFinalState, Table: "renders", Expect: map[string]any{"seq": 1}},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "5 renders of a")
	assert.Contains(t, errs[1], "final_state requires database context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
