package generator

import (
	"context"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/ir"
)

// Adapt turns a Single into a Generator.
//
// ProcessOne is called once per declaration with a pass logger carrying the
// declaration name. Returned signals are collected; a signal without a root
// is rewrapped with the current declaration as root so only that
// declaration is retried. A fatal error stops the batch with Fatal; any
// other error stops it with Fault and drops deferrals collected so far.
func Adapt(s Single) Generator {
	return &adapted{single: s}
}

type adapted struct {
	single Single
}

func (a *adapted) Name() string            { return a.single.Name() }
func (a *adapted) SupportedTags() []ir.Tag { return a.single.SupportedTags() }

func (a *adapted) Finalize(ctx context.Context, env *Env) error {
	return a.single.Finalize(ctx, env)
}

func (a *adapted) Process(ctx context.Context, pass *Pass, batch []ir.Declaration) deferral.Outcome {
	var deferrals []*deferral.Signal
	for _, decl := range batch {
		err := a.single.ProcessOne(ctx, pass.WithDecl(decl), decl)
		if err == nil {
			continue
		}

		out := deferral.FromError(err)
		switch out.Status {
		case deferral.StatusDeferred:
			sig := out.Deferrals[0]
			if sig.Root == nil {
				sig = deferral.Rewrap(sig, decl)
			}
			deferrals = append(deferrals, sig)
		default:
			return out
		}
	}
	return deferral.OK(deferrals...)
}
