package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a template runtime scenario: the call sites to register,
// the renders to perform and the assertions over the resulting trace and
// database state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional CUE catalog file with site definitions.
	// Relative paths are resolved against the scenario file's directory.
	Catalog string `yaml:"catalog,omitempty"`

	// Sites are inline site definitions, registered after catalog sites.
	Sites []SiteDef `yaml:"sites,omitempty"`

	// FastPath enables the processors' fast path. Defaults to true.
	FastPath *bool `yaml:"fast_path,omitempty"`

	// Flow lists the renders to perform, in order.
	Flow []RenderStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// SiteDef is an inline template call site.
type SiteDef struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Types  []string `yaml:"types,omitempty"`
}

// RenderStep renders one template.
//
// Exactly one of Render and Combine is set.
type RenderStep struct {
	// Render names the site to instantiate.
	Render string `yaml:"render,omitempty"`

	// Values binds the site's embedded expressions by name. A value for a
	// template slot may be a nested {site, values} map.
	Values map[string]any `yaml:"values,omitempty"`

	// Combine lists earlier flow steps whose templates are concatenated.
	Combine []int `yaml:"combine,omitempty"`

	// Flatten splices nested templates before processing.
	Flatten bool `yaml:"flatten,omitempty"`

	// Processor is str, upper or sql. Defaults to str.
	Processor string `yaml:"processor,omitempty"`

	// Exec runs an sql step's query against the scenario database.
	Exec bool `yaml:"exec,omitempty"`

	// Expect checks the step's outcome. Nil means the step must not fail.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
// Empty fields are not checked.
type ExpectClause struct {
	Result string   `yaml:"result,omitempty"`
	Path   string   `yaml:"path,omitempty"`
	Error  string   `yaml:"error,omitempty"`
	Args   []string `yaml:"args,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is render_contains, render_order, render_count or final_state.
	Type string `yaml:"type"`

	// Site names the rendered site (render_contains, render_count).
	Site string `yaml:"site,omitempty"`

	// Processor, Path and Result narrow render_contains; Path also narrows
	// render_count.
	Processor string `yaml:"processor,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Result    string `yaml:"result,omitempty"`

	// Count is the expected number of renders (render_count).
	Count int `yaml:"count,omitempty"`

	// Sites is the expected render order (render_order).
	Sites []string `yaml:"sites,omitempty"`

	// Table, Where and Expect drive final_state. Where fields must match
	// exactly; Expect is a subset match on the single matching row.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRenderContains = "render_contains"
	AssertRenderOrder    = "render_order"
	AssertRenderCount    = "render_count"
	AssertFinalState     = "final_state"
)

// Processor names a scenario step may use.
const (
	ProcessorSTR   = "str"
	ProcessorUpper = "upper"
	ProcessorSQL   = "sql"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "assertion:" vs "assertions:" typos surface.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml scenario in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// fastPath reports whether processors run with the fast path enabled.
func (s *Scenario) fastPath() bool {
	return s.FastPath == nil || *s.FastPath
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" && len(s.Sites) == 0 {
		return fmt.Errorf("catalog or sites is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	for i, site := range s.Sites {
		if site.Name == "" {
			return fmt.Errorf("sites[%d]: name is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single flow step.
func validateStep(index int, step *RenderStep) error {
	switch {
	case step.Render == "" && len(step.Combine) == 0:
		return fmt.Errorf("flow[%d]: render or combine is required", index)
	case step.Render != "" && len(step.Combine) > 0:
		return fmt.Errorf("flow[%d]: render and combine are mutually exclusive", index)
	}

	for _, ref := range step.Combine {
		if ref < 0 || ref >= index {
			return fmt.Errorf("flow[%d]: combine refers to step %d, must be an earlier step", index, ref)
		}
	}

	switch step.Processor {
	case "", ProcessorSTR, ProcessorUpper:
		if step.Exec {
			return fmt.Errorf("flow[%d]: exec requires the sql processor", index)
		}
	case ProcessorSQL:
	default:
		return fmt.Errorf("flow[%d]: unknown processor %q", index, step.Processor)
	}

	if step.Expect != nil {
		switch step.Expect.Path {
		case "", "fast", "slow":
		default:
			return fmt.Errorf("flow[%d].expect: path must be fast or slow", index)
		}
		if step.Expect.Error != "" && (step.Expect.Result != "" || step.Expect.Path != "") {
			return fmt.Errorf("flow[%d].expect: error excludes result and path", index)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRenderContains:
		if a.Site == "" {
			return fmt.Errorf("assertions[%d]: site is required for render_contains", index)
		}
	case AssertRenderOrder:
		if len(a.Sites) == 0 {
			return fmt.Errorf("assertions[%d]: sites list is required for render_order", index)
		}
	case AssertRenderCount:
		if a.Site == "" {
			return fmt.Errorf("assertions[%d]: site is required for render_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for render_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
