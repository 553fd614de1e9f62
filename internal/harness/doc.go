// Package harness runs template scenarios and checks their render traces.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: sum_renders
//	description: "Repeated renders reuse one specialized linkage"
//	catalog: ../catalogs/basic.cue   # optional, relative to the scenario
//	sites:
//	  - name: sum
//	    source: '\{x} + \{y} = \{z}'
//	    types: [int, int, int]
//	flow:
//	  - render: sum
//	    processor: str
//	    values: { x: 1, y: 2, z: 3 }
//	    expect:
//	      result: "1 + 2 = 3"
//	      path: fast
//	  - combine: [0, 0]
//	    processor: upper
//	assertions:
//	  - type: render_count
//	    site: sum
//	    count: 1
//	  - type: final_state
//	    table: renders
//	    where: { seq: 2 }
//	    expect: { path: fast }
//
// A flow step either renders a site (render) or combines the templates of
// earlier steps by index (combine). Processors are str, upper and sql; an
// sql step with exec: true also executes the query against the scenario
// database.
//
// # Assertion Types
//
//   - render_contains: a render of the site exists (optionally matching
//     processor, path and result)
//   - render_order: first renders of the listed sites appear in order
//   - render_count: the site was rendered exactly N times (optionally on one path)
//   - final_state: queries a table and verifies expected column values
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite store, a logical clock starting
// at 1 and sequential linkage IDs (site-0001, site-0002, ...), so the same
// scenario always produces a byte-identical trace for golden comparison.
package harness
