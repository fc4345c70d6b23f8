// Package ir provides the declaration model shared by the turbine orchestrator,
// its generators and its host adapters.
//
// This package contains type definitions and small helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// declaration model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Declarations are supplied by a host and never constructed by the engine.
//     Decl is a convenience implementation for hosts and tests.
//   - DeclID is the only identity the engine relies on. Two Declaration values
//     with the same ID are the same declaration, even across passes.
//   - Tags are plain strings compared case-sensitively.
//   - Canonical JSON (canonical.go) is the only serialization used for golden
//     traces, so that traces are byte-stable across runs.
package ir
