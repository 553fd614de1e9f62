package querysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/processor"
	"github.com/roach88/strtpl/internal/template"
	"github.com/roach88/strtpl/internal/testutil"
)

func newFactory() *template.Factory {
	return template.NewFactory(template.WithIDGenerator(testutil.NewSequenceGenerator("q")))
}

func TestProcess_SimpleSelect(t *testing.T) {
	f := newFactory()
	l, err := f.Site(
		[]string{"SELECT name FROM items WHERE category = ", " LIMIT ", ""},
		ir.Signature{ir.TypeString, ir.TypeInt},
	)
	require.NoError(t, err)

	q, err := New().Process(l.MustNew("widgets", 10))
	require.NoError(t, err)

	assert.Equal(t, "SELECT name FROM items WHERE category = ? LIMIT ?", q.SQL)
	assert.NotContains(t, q.SQL, "widgets") // value NOT in SQL
	assert.Equal(t, []any{"widgets", int64(10)}, q.Args)
}

func TestProcess_FastPathOnLinkedTemplate(t *testing.T) {
	f := newFactory()
	l, err := f.Site([]string{"DELETE FROM t WHERE id = ", ""}, ir.Signature{ir.TypeInt})
	require.NoError(t, err)

	p := New()
	first, err := p.ProcessResult(l.MustNew(1))
	require.NoError(t, err)
	second, err := p.ProcessResult(l.MustNew(2))
	require.NoError(t, err)

	assert.Equal(t, ir.PathFast, first.Path)
	assert.Equal(t, ir.PathFast, second.Path)
	assert.Equal(t, first.Value.SQL, second.Value.SQL)
	assert.Equal(t, []any{int64(2)}, second.Value.Args)
}

func TestProcess_UnlinkedUsesSlowPath(t *testing.T) {
	tpl := template.MustOf([]string{"SELECT ", ""}, []any{1})

	res, err := New().ProcessResult(tpl)
	require.NoError(t, err)

	assert.Equal(t, ir.PathSlow, res.Path)
	assert.Equal(t, "SELECT ?", res.Value.SQL)
}

func TestProcess_FlattensNestedTemplates(t *testing.T) {
	filter := template.MustOf([]string{"category = ", " AND qty > ", ""}, []any{"widgets", 5})
	stmt := template.MustOf([]string{"SELECT * FROM items WHERE ", " ORDER BY id LIMIT ", ""}, []any{filter, 3})

	q, err := New().Process(stmt)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM items WHERE category = ? AND qty > ? ORDER BY id LIMIT ?", q.SQL)
	assert.Equal(t, []any{"widgets", int64(5), int64(3)}, q.Args)
}

func TestProcess_RejectsIdent(t *testing.T) {
	tpl := template.MustOf([]string{"SELECT * FROM ", ""}, []any{Ident("users")})

	_, err := New().Process(tpl)
	require.Error(t, err)
	assert.True(t, template.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "identifier")
}

func TestProcess_NilTemplate(t *testing.T) {
	_, err := Default.Process(nil)
	assert.True(t, template.IsNullReference(err))
}

func TestValueToParam(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "s", "s"},
		{"int", 7, int64(7)},
		{"int8", int8(-1), int64(-1)},
		{"uint", uint(9), int64(9)},
		{"float32", float32(0.5), float64(0.5)},
		{"bool", true, true},
		{"bytes", []byte("b"), []byte("b")},
		{"time", ts, ts},
		{"template", template.MustOf([]string{"a", "c"}, []any{"b"}), "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := valueToParam(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueToParam_Errors(t *testing.T) {
	_, err := valueToParam(uint64(1 << 63))
	assert.Error(t, err)

	_, err = valueToParam(struct{}{})
	assert.Error(t, err)

	_, err = valueToParam([]int{1})
	assert.Error(t, err)
}

func TestProcess_SharesLinkageWithOtherProcessor(t *testing.T) {
	f := newFactory()
	l, err := f.Site([]string{"SELECT ", ""}, ir.Signature{ir.TypeInt})
	require.NoError(t, err)
	tpl := l.MustNew(1)

	// STR claims the slot first; the SQL processor still produces the query.
	s, err := processor.NewSTR().Process(tpl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", s)

	res, err := New().ProcessResult(tpl)
	require.NoError(t, err)
	assert.Equal(t, ir.PathSlow, res.Path)
	assert.Equal(t, "SELECT ?", res.Value.SQL)
}
