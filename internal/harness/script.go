package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
)

// scripted is a generator whose Process behavior is driven by Rules.
type scripted struct {
	spec      GeneratorSpec
	decls     map[string]*ir.Decl
	finalized int
}

func newScripted(spec GeneratorSpec, decls map[string]*ir.Decl) *scripted {
	return &scripted{spec: spec, decls: decls}
}

// generator returns the batch or single form of s.
func (s *scripted) generator() generator.Generator {
	if s.spec.Form == "single" {
		return generator.Adapt(&singleScript{s})
	}
	return &batchScript{s}
}

func (s *scripted) Name() string { return s.spec.Name }

func (s *scripted) SupportedTags() []ir.Tag {
	tags := make([]ir.Tag, len(s.spec.Tags))
	for i, t := range s.spec.Tags {
		tags[i] = ir.Tag(t)
	}
	return tags
}

func (s *scripted) Finalize(context.Context, *generator.Env) error {
	s.finalized++
	switch s.spec.Finalize {
	case "error":
		return errors.New(s.spec.FinalizeMessage)
	case "panic":
		panic(s.spec.FinalizeMessage)
	}
	return nil
}

// match returns the first rule for pass whose Decl equals id.
func (s *scripted) match(pass int, id string) (Rule, bool) {
	for _, r := range s.spec.Rules {
		if r.Pass != 0 && r.Pass != pass {
			continue
		}
		if r.Decl == id {
			return r, true
		}
	}
	return Rule{}, false
}

// signal builds the deferral signal for r. A per-declaration rule without
// a source is attributed to the declaration itself.
func (s *scripted) signal(r Rule, decl ir.Declaration) *deferral.Signal {
	sig := deferral.New(r.Message)
	if r.Action == ActionDeferBatch {
		return sig
	}
	if src, ok := s.decls[r.Source]; ok {
		sig.Source = src
	} else if decl != nil {
		sig.Source = decl
	}
	if root, ok := s.decls[r.Root]; ok {
		sig.Root = root
	}
	return sig
}

// terminal returns the outcome of a fault, fatal or panic rule.
func terminal(r Rule) (deferral.Outcome, bool) {
	switch r.Action {
	case ActionFault:
		return deferral.Fault(errors.New(r.Message)), true
	case ActionFatal:
		return deferral.Fatal(errors.New(r.Message)), true
	case ActionPanic:
		panic(r.Message)
	}
	return deferral.Outcome{}, false
}

type batchScript struct {
	*scripted
}

func (b *batchScript) Process(_ context.Context, pass *generator.Pass, batch []ir.Declaration) deferral.Outcome {
	if r, ok := b.match(pass.Number, ""); ok {
		if out, done := terminal(r); done {
			return out
		}
		switch r.Action {
		case ActionDefer, ActionDeferBatch:
			return deferral.Deferred(b.signal(r, nil))
		}
	}

	var sigs []*deferral.Signal
	for _, decl := range batch {
		r, ok := b.match(pass.Number, string(decl.ID()))
		if !ok {
			continue
		}
		if out, done := terminal(r); done {
			return out
		}
		if r.Action == ActionDefer {
			sigs = append(sigs, b.signal(r, decl))
		}
	}
	return deferral.OK(sigs...)
}

type singleScript struct {
	*scripted
}

func (s *singleScript) ProcessOne(_ context.Context, pass *generator.Pass, decl ir.Declaration) error {
	r, ok := s.match(pass.Number, string(decl.ID()))
	if !ok {
		r, ok = s.match(pass.Number, "")
	}
	if !ok {
		return nil
	}
	switch r.Action {
	case ActionOK:
		return nil
	case ActionDefer:
		return s.signal(r, decl)
	case ActionDeferBatch:
		return deferral.New(r.Message)
	case ActionFault:
		return errors.New(r.Message)
	case ActionFatal:
		return deferral.MarkFatal(errors.New(r.Message))
	case ActionPanic:
		panic(r.Message)
	}
	return fmt.Errorf("unknown action %q", r.Action)
}
