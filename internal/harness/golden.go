package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strtpl/internal/ir"
)

// goldenDir holds one <scenario>.golden trace per scenario, relative to
// the harness package. Regenerate with: go test ./internal/harness -update
const goldenDir = "testdata/golden"

// canonical converts the event into the map form ir.MarshalCanonical
// accepts. Empty optional fields are omitted; a render always carries its
// result and values, even when empty.
func (ev TraceEvent) canonical() map[string]any {
	m := map[string]any{"type": ev.Type, "step": ev.Step}
	for key, value := range map[string]string{
		"site":       ev.Site,
		"linkage_id": ev.LinkageID,
		"processor":  ev.Processor,
		"path":       string(ev.Path),
		"code":       ev.Code,
	} {
		if value != "" {
			m[key] = value
		}
	}
	if ev.Type == EventRender {
		m["result"] = ev.Result
		m["values"] = ev.Values
	}
	if ev.Args != nil {
		m["args"] = ev.Args
	}
	if ev.Seq != 0 {
		m["seq"] = ev.Seq
	}
	return m
}

// MarshalTrace renders a result's trace as canonical JSON:
// {"scenario_name": ..., "trace": [...]}.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	events := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		events[i] = ev.canonical()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

// AssertGolden fails t when the result's trace differs from the scenario's
// golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	trace, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, trace)
	return nil
}
