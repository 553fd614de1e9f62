package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strtpl/internal/ir"
)

func sumScenario() *Scenario {
	return &Scenario{
		Name:        "sum",
		Description: "sum renders",
		Sites: []SiteDef{
			{Name: "sum", Source: `\{x} + \{y}`, Types: []string{"int", "int"}},
		},
		Flow: []RenderStep{
			{Render: "sum", Values: map[string]any{"x": 1, "y": 2}},
		},
		Assertions: []Assertion{
			{Type: AssertRenderCount, Site: "sum", Count: 1},
		},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(sumScenario())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventSite, result.Trace[0].Type)
	assert.Equal(t, "site-0001", result.Trace[0].LinkageID)
	assert.Equal(t, int64(1), result.Trace[0].Seq)

	render := result.Trace[1]
	assert.Equal(t, EventRender, render.Type)
	assert.Equal(t, "1 + 2", render.Result)
	assert.Equal(t, ir.PathFast, render.Path)
	assert.Equal(t, "str", render.Processor)
	assert.Equal(t, []string{"1", "2"}, render.Values)
	assert.Equal(t, int64(2), render.Seq)
}

func TestRun_FastPathDisabled(t *testing.T) {
	s := sumScenario()
	off := false
	s.FastPath = &off

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, ir.PathSlow, result.Trace[1].Path)
	assert.Equal(t, "1 + 2", result.Trace[1].Result)
}

func TestRun_ExpectMismatch(t *testing.T) {
	s := sumScenario()
	s.Flow[0].Expect = &ExpectClause{Result: "3", Path: "slow"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected result "3", got "1 + 2"`)
	assert.Contains(t, result.Errors[1], "expected path slow, got fast")
}

func TestRun_UnexpectedError(t *testing.T) {
	s := sumScenario()
	s.Flow[0].Values = map[string]any{"x": "one", "y": 2}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventError, result.Trace[1].Type)
	assert.Equal(t, "INVALID_ARGUMENT", result.Trace[1].Code)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	s := sumScenario()
	s.Flow[0].Values = map[string]any{"x": 1}
	s.Flow[0].Expect = &ExpectClause{Error: "NULL_REFERENCE"}
	s.Assertions = []Assertion{{Type: AssertRenderCount, Site: "sum", Count: 0}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error NULL_REFERENCE, got INVALID_ARGUMENT")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	s := sumScenario()
	s.Flow[0].Expect = &ExpectClause{Error: "INVALID_ARGUMENT"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error INVALID_ARGUMENT")
}

func TestRun_CoercesYAMLNumbers(t *testing.T) {
	s := &Scenario{
		Name:        "coerce",
		Description: "uint and float slots accept YAML ints",
		Sites: []SiteDef{
			{Name: "m", Source: `\{u}/\{f}`, Types: []string{"uint", "float"}},
		},
		Flow: []RenderStep{
			{Render: "m", Values: map[string]any{"u": 7, "f": 2}},
			{Render: "m", Values: map[string]any{"u": -1, "f": 2}, Expect: &ExpectClause{Error: "INVALID_ARGUMENT"}},
		},
		Assertions: []Assertion{{Type: AssertRenderContains, Site: "m", Result: "7/2"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SharedLinkage(t *testing.T) {
	s := &Scenario{
		Name:        "shared",
		Description: "identical sites share one linkage",
		Sites: []SiteDef{
			{Name: "a", Source: `<\{v}>`},
			{Name: "b", Source: `<\{w}>`},
		},
		Flow: []RenderStep{
			{Render: "a", Values: map[string]any{"v": 1}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Table: "sites", Where: map[string]any{"id": "site-0001"}, Expect: map[string]any{"seq": 1}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, result.Trace[0].LinkageID, result.Trace[1].LinkageID)
}

func TestRun_ScenarioFaults(t *testing.T) {
	t.Run("unknown site", func(t *testing.T) {
		s := sumScenario()
		s.Flow[0].Render = "nope"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown site "nope"`)
	})

	t.Run("bad source", func(t *testing.T) {
		s := sumScenario()
		s.Sites[0].Source = `\{x`
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to register sites")
	})

	t.Run("invalid expression", func(t *testing.T) {
		s := sumScenario()
		s.Sites[0].Source = `\{x + 1} + \{y}`
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "E107")
	})

	t.Run("duplicate name", func(t *testing.T) {
		s := sumScenario()
		s.Sites = append(s.Sites, s.Sites[0])
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defined twice")
	})
}

func TestRun_ExecFailureRecorded(t *testing.T) {
	s := &Scenario{
		Name:        "exec",
		Description: "invalid SQL is an EXEC error",
		Sites:       []SiteDef{{Name: "bad", Source: "SELEKT 1"}},
		Flow: []RenderStep{
			{Render: "bad", Processor: ProcessorSQL, Exec: true, Expect: &ExpectClause{Error: CodeExec}},
		},
		Assertions: []Assertion{{Type: AssertRenderCount, Site: "bad", Count: 0}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, CodeExec, result.Trace[1].Code)
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(sumScenario(), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "site registered")
	assert.Contains(t, buf.String(), "flow step completed")
}
