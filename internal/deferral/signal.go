// Package deferral defines the values a generator uses to say "this
// declaration cannot be processed yet" and the rule that decides which
// declarations get retried as a result.
//
// Deferral is a typed result, not control flow: generators return an Outcome
// from Process and the engine applies Scope to every signal it carries.
package deferral

import (
	"errors"

	"github.com/roach88/turbine/internal/ir"
)

// Signal describes why a declaration could not be processed in the current
// pass.
//
// Source is the most specific declaration responsible for the failure (for
// example a method). Root is the coarser declaration that should be retried
// (for example the enclosing type). Both are optional; a signal with neither
// defers the whole dispatched batch.
//
// Signal implements error so that single-declaration generators can return
// it directly.
type Signal struct {
	Message string
	Source  ir.Declaration
	Root    ir.Declaration
}

// New creates a signal with only a message.
func New(message string) *Signal {
	return &Signal{Message: message}
}

// NewFor creates a signal attributed to source.
func NewFor(message string, source ir.Declaration) *Signal {
	return &Signal{Message: message, Source: source}
}

// NewRooted creates a signal attributed to source that retries root.
func NewRooted(message string, source, root ir.Declaration) *Signal {
	return &Signal{Message: message, Source: source, Root: root}
}

// Rewrap returns a new signal with sig's message and source and the given
// root. Used when the caller knows the enclosing retry unit and the
// generator that raised sig did not.
func Rewrap(sig *Signal, root ir.Declaration) *Signal {
	return &Signal{Message: sig.Message, Source: sig.Source, Root: root}
}

// Error implements the error interface.
func (s *Signal) Error() string {
	return s.Message
}

// AsSignal extracts a *Signal from err, following wrapped errors.
func AsSignal(err error) (*Signal, bool) {
	var sig *Signal
	if errors.As(err, &sig) {
		return sig, true
	}
	return nil, false
}

// Scope returns the declarations that sig defers when raised against batch.
//
// Rules, in order:
//   - Root set: only Root.
//   - Source set and present in batch (by ID): only Source.
//   - Otherwise: every declaration in batch.
//
// Scope is pure; the returned slice never aliases batch.
func Scope(sig *Signal, batch []ir.Declaration) []ir.Declaration {
	if sig.Root != nil {
		return []ir.Declaration{sig.Root}
	}
	if sig.Source != nil && ir.Contains(batch, sig.Source) {
		return []ir.Declaration{sig.Source}
	}
	out := make([]ir.Declaration, len(batch))
	copy(out, batch)
	return out
}
