// Package generator defines the contract between the turbine engine and the
// pluggable generators it drives.
//
// A generator declares the tags it wants, receives batches of declarations
// carrying those tags once per pass, and gets one Finalize call after the
// final pass. Generators are long-lived: one instance per registration for
// the whole run, free to accumulate private state across passes.
package generator

//go:generate mockgen -destination=mocks/mock_generator.go -package=mocks -source=generator.go Generator,Single

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/turbine/internal/config"
	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/store"
)

// ErrNotImplemented is returned by Base methods a generator did not override.
var ErrNotImplemented = errors.New("not implemented")

// Generator is the batch form of the contract.
type Generator interface {
	// Name identifies the generator in logs and diagnostics.
	Name() string

	// SupportedTags lists the tags routed to this generator. Queried once
	// at engine construction.
	SupportedTags() []ir.Tag

	// Process handles one batch for one tag in one pass. The batch may be
	// partial; implementations defer what they cannot resolve yet.
	Process(ctx context.Context, pass *Pass, batch []ir.Declaration) deferral.Outcome

	// Finalize is called exactly once after the final pass, whether or not
	// the generator ever saw work. A returned error aborts the run.
	Finalize(ctx context.Context, env *Env) error
}

// Single is the one-declaration-at-a-time form. Wrap with Adapt to obtain a
// Generator.
type Single interface {
	Name() string
	SupportedTags() []ir.Tag

	// ProcessOne handles decl. Returning a *deferral.Signal defers it;
	// any other error faults the whole batch.
	ProcessOne(ctx context.Context, pass *Pass, decl ir.Declaration) error

	Finalize(ctx context.Context, env *Env) error
}

// Env is the run-wide context handed to generators.
type Env struct {
	Messager diag.Messager
	Filer    store.Filer
	Options  config.Options
	Logger   *slog.Logger
}

// Pass is the per-pass, per-generator context passed to Process.
type Pass struct {
	*Env

	// Number is the 1-based pass number.
	Number int

	// Tag is the tag the current batch was selected for.
	Tag ir.Tag

	// Logger carries generator, pass and tag attributes. It shadows
	// Env.Logger.
	Logger *slog.Logger
}

// NewPass builds the context for one dispatch of generator name.
func NewPass(env *Env, number int, name string, tag ir.Tag) *Pass {
	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pass{
		Env:    env,
		Number: number,
		Tag:    tag,
		Logger: logger.With("generator", name, "pass", number, "tag", string(tag)),
	}
}

// WithDecl returns a copy of p whose logger carries the declaration name.
func (p *Pass) WithDecl(decl ir.Declaration) *Pass {
	cp := *p
	cp.Logger = p.Logger.With("decl", ir.NameOf(decl))
	return &cp
}

// Base supplies defaults for embedding. Process and ProcessOne fail with
// ErrNotImplemented; Finalize does nothing.
type Base struct {
	ID   string
	Tags []ir.Tag
}

// Name returns b.ID.
func (b Base) Name() string { return b.ID }

// SupportedTags returns b.Tags.
func (b Base) SupportedTags() []ir.Tag { return b.Tags }

// Process fails with ErrNotImplemented.
func (Base) Process(context.Context, *Pass, []ir.Declaration) deferral.Outcome {
	return deferral.Fault(ErrNotImplemented)
}

// ProcessOne fails with ErrNotImplemented.
func (Base) ProcessOne(context.Context, *Pass, ir.Declaration) error {
	return ErrNotImplemented
}

// Finalize is a no-op.
func (Base) Finalize(context.Context, *Env) error { return nil }

// ExtractionError reports that required data could not be read from a
// validly tagged declaration. Generators return it wrapped in
// deferral.MarkFatal; the engine reports it as an extraction failure.
type ExtractionError struct {
	Decl    string
	Message string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return e.Decl + ": " + e.Message
}
