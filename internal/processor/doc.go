// Package processor turns templates into results of an arbitrary type R.
//
// A Processor is configured once with a Hooks[R] value and then serves any
// number of Process calls, concurrently.
//
// ARCHITECTURE:
//
// Two paths, identical observable results:
//
// Fast path (linked templates only):
// 1. Claim the linkage's owner slot with the processor's owner (CAS)
// 2. The winner builds Metadata[R] exactly once: mapped fragments, per-slot
// value filters, stringifiers for the mapped slot types, a result filter
// 3. Every later call applies the metadata directly; mapping hooks are not
// consulted again
//
// Slow path (unlinked templates, fast path disabled, slot owned by another
// processor, or metadata not useful):
// 1. MapFragment over every fragment (last == true only for the final one)
// 2. MapValue over every value
// 3. template.Interpolate(mappedFragments, mappedValues)
// 4. MapInterpolation over the resulting string
//
// ERRORS:
//
// Errors returned by hooks propagate to the caller unchanged, on either path.
// A failed metadata build releases the slot; a nil filter or an unsupported
// mapped type is a LINKAGE error. A panic inside the fast path is recovered
// and returned as INTERNAL_LINKAGE.
//
// A non-owner that falls back to the slow path is logged at Warn once per
// linkage.
package processor
