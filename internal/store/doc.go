// Package store persists specialized call sites and the render log in
// SQLite (github.com/mattn/go-sqlite3).
//
// Two append-only tables back it:
//   - sites: one row per linkage, keyed by ID and unique per site key
//   - renders: one row per processed template, optionally referencing a site
//
// Sites and renders share a single logical clock: every record carries a
// seq drawn from NextSeq, and reads order by seq. Wall-clock time is never
// stored.
//
// The same database also runs the parameterized statements built by the
// SQL processor (QueryTable, ExecTemplate), so rendered queries can be
// exercised against application tables next to the log.
//
// Fragment lists, signatures and value lists are stored as canonical JSON
// (ir.MarshalCanonical) so equal sites always produce equal rows.
package store
