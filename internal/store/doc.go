// Package store provides the persistence surfaces used by turbine runs.
//
// Two concerns live here:
//   - Filer: output locations generators read from and write to (generated
//     sources, auto-discovery resource files). DirFiler writes to disk,
//     MemFiler keeps everything in memory for tests and dry runs.
//   - Store: a SQLite run history recording each run's pass timings and
//     diagnostics for `turbine history`.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run IDs are UUIDv7 so that lexical order matches creation order. All
// list queries order by (started_at_us, id) for deterministic output.
package store
