package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/turbine/internal/autoservice"
	"github.com/roach88/turbine/internal/config"
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/engine"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/store"
	"github.com/roach88/turbine/internal/testutil"
)

// PassStep is the fixed duration of every fake-clock reading, so pass
// timings in a Result are reproducible.
const PassStep = time.Millisecond

// Harness executes one scenario against a real engine.
// Every run gets fresh declarations, generators and an in-memory filer.
type Harness struct {
	scenario  *Scenario
	decls     map[string]*ir.Decl
	scripts   []*scripted
	filer     *store.MemFiler
	collector *diag.Collector
	recorder  *engine.Recorder
	logger    *slog.Logger
	next      int
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build declarations and seed class output with existing resources
// 2. Register scripted generators in scenario order
// 3. Drive the engine through every pass, applying add_tags first
// 4. Collect trace, diagnostics, finalize counts and resources
// 5. Evaluate assertions
//
// A fatal run error is part of the result, not a Run error. Run only fails
// when the scenario cannot be set up.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		scenario:  scenario,
		decls:     make(map[string]*ir.Decl),
		filer:     store.NewMemFiler(),
		collector: diag.NewCollector(),
		recorder:  &engine.Recorder{},
		logger:    slog.New(slog.DiscardHandler),
	}

	h.buildDecls()
	if err := h.seedResources(); err != nil {
		return nil, fmt.Errorf("failed to seed resources: %w", err)
	}

	registry := generator.NewRegistry()
	for _, spec := range scenario.Generators {
		s := newScripted(spec, h.decls)
		h.scripts = append(h.scripts, s)
		if err := registry.Register(spec.Name, generator.Of(s.generator())); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", spec.Name, err)
		}
	}

	opts := []engine.Option{
		engine.WithObserver(h.recorder),
		engine.WithClock(testutil.NewFakeTime(PassStep)),
	}
	if scenario.AutoService != nil {
		opts = append(opts, engine.WithAutoService(ir.Tag(scenario.AutoService.Tag)))
	}

	env := &generator.Env{
		Messager: h.collector,
		Filer:    h.filer,
		Options:  config.Options{Debug: scenario.Debug},
		Logger:   h.logger,
	}

	result := NewResult()
	eng, err := engine.New(registry, env, opts...)
	if err != nil {
		// Construction errors are fatal run errors a scenario may assert on.
		result.RunError = errorCode(err)
		if result.RunError == "" {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
	} else {
		_, err = eng.Run(context.Background(), engine.HostFunc(h.nextPass))
		if err != nil {
			result.RunError = errorCode(err)
			if result.RunError == "" {
				return nil, fmt.Errorf("run failed: %w", err)
			}
		}
	}

	h.collect(result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) buildDecls() {
	for _, spec := range h.scenario.Declarations {
		kind := ir.Kind(spec.Kind)
		if kind == "" {
			kind = ir.KindType
		}
		d := ir.NewDecl(ir.DeclID(spec.ID), spec.ID, kind)
		for _, tag := range spec.Tags {
			d.AddAnnotation(ir.Tag(tag), nil)
		}
		for tag, attrs := range spec.Attrs {
			d.AddAnnotation(ir.Tag(tag), attrs)
		}
		h.decls[spec.ID] = d
	}
	for _, spec := range h.scenario.Declarations {
		if spec.Enclosing != "" {
			h.decls[spec.ID].WithEnclosing(h.decls[spec.Enclosing])
		}
	}
}

func (h *Harness) seedResources() error {
	if h.scenario.AutoService == nil {
		return nil
	}
	for key, lines := range h.scenario.AutoService.Existing {
		var data []byte
		for _, line := range lines {
			data = append(data, line...)
			data = append(data, '\n')
		}
		if err := h.filer.Put(store.ClassOutput, autoservice.ResourcePath(key), data); err != nil {
			return err
		}
	}
	return nil
}

// nextPass serves scenario passes in order.
func (h *Harness) nextPass(context.Context) (ir.TaggedSet, bool, error) {
	if h.next >= len(h.scenario.Passes) {
		return nil, false, fmt.Errorf("scenario %s ran out of passes", h.scenario.Name)
	}
	p := h.scenario.Passes[h.next]
	h.next++

	for id, tags := range p.AddTags {
		for _, tag := range tags {
			h.decls[id].AddAnnotation(ir.Tag(tag), nil)
		}
	}

	tagged := ir.TaggedSet{}
	for tag, ids := range p.Tagged {
		for _, id := range ids {
			tagged.Add(ir.Tag(tag), h.decls[id])
		}
	}
	return tagged, p.Final, nil
}

func (h *Harness) collect(result *Result) {
	for _, ev := range h.recorder.Events {
		result.AddEvent(ev)
	}
	for _, d := range h.collector.All() {
		result.AddDiagnostic(d)
	}
	for _, s := range h.scripts {
		result.Finalized[s.spec.Name] = s.finalized
	}
	for _, path := range h.filer.Paths(store.ClassOutput) {
		data, _ := h.filer.Get(store.ClassOutput, path)
		result.Resources[path] = testutil.Lines(data)
	}
}

// errorCode returns the fatal error code of err, or "" for non-fatal errors.
func errorCode(err error) string {
	var fe *engine.FatalError
	if errors.As(err, &fe) {
		return string(fe.Code)
	}
	return ""
}

// sortedKeys returns m's keys in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
