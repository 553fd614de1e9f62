// Package template implements string-template values and their call-site
// linkage.
//
// A Template is an immutable pair of fragments and values with the invariant
// len(fragments) == len(values)+1. Templates come from two places:
//
//   - A Linkage (one per call site) builds templates for a template
//     occurrence whose fragments and slot types are known up front. The
//     linkage carries procedures specialized for that signature and one
//     processor metadata slot. These templates are fast-path eligible.
//   - Of, OfString, Combine, Flatten and MapValues build unlinked templates.
//     They interpolate through the generic path.
//
// # Specialization
//
// The Factory memoizes linkages by ir.SiteKey(fragments, signature). The plan
// step runs once per key: it resolves per-slot getters, per-slot stringifiers
// chosen by slot type, the values procedure, a fused join over the constant
// fragments and a mapped join over caller-supplied strings.
//
// # Concurrency
//
// Templates and linkages are immutable after construction and safe to share.
// The only mutable state is the linkage metadata slot, claimed once by a
// compare-and-swap from empty to an owner.
package template
