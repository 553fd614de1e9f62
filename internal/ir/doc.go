// Package ir provides the foundational types for the strtpl template runtime.
//
// This package contains slot type descriptors, canonical string conversion,
// canonical JSON and content hashing. All other internal packages import ir;
// ir imports nothing internal. This keeps ir the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - A slot Type is resolved once per call site, never per value
//   - ToString is the single canonical value-to-string conversion
//   - Canonical JSON forbids floats and null (snapshots must be byte-stable)
//   - All JSON tags use snake_case
package ir
