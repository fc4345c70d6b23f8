// Package engine implements the turbine pass orchestrator.
//
// The host toolchain calls RunPass once per compiler pass with the
// declarations newly tagged in that pass. For every registered tag the
// engine builds a batch (new declarations plus the generator's deferred
// declarations that now carry the tag), dispatches it, and applies the
// deferral scoping rule to every signal the generator returns.
//
// ARCHITECTURE:
//
// Pass Flow:
//  1. Batch = newly tagged declarations for the tag, then ledger entries
//     carrying the tag (removed from the ledger before dispatch)
//  2. Empty batch: skipped
//  3. Generator.Process returns a deferral.Outcome
//  4. Deferrals are scoped and recorded in the generator's ledger
//  5. Faults (errors and panics) become one ERROR diagnostic per generator
//  6. Fatal outcomes abort the run with a *FatalError
//
// Final Pass:
// No Process calls. Remaining ledger entries are promoted to ERROR
// diagnostics exactly once, then Finalize is called once per generator in
// registration order.
//
// Determinism:
// Dispatch order is registration order then tag order. Retried entries are
// appended in declaration ID order. Observer events carry a logical Seq from
// Clock, never wall time.
package engine
