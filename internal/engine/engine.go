package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/turbine/internal/autoservice"
	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/ledger"
)

// DefaultProcessorName names the run in logs and timing reports when
// WithProcessorName is not given.
const DefaultProcessorName = "turbine"

// Engine drives registered generators through the passes of one run.
//
// Thread-safety model:
//   - RunPass and Run must be called from one goroutine at a time
//   - Stats, Ledger and Generators are safe to call between passes
//
// INVARIANTS:
//   - dispatch order is registration order, then each generator's tag order
//   - a declaration reaches a generator at most once per pass
//   - Finalize runs once per generator, after the final pass only
type Engine struct {
	env       *generator.Env
	logger    *slog.Logger
	slots     []*slot
	routes    []route
	clock     *Clock
	time      TimeSource
	metrics   *Metrics
	observer  Observer
	processor string
	autoTag   ir.Tag
	provider  metric.MeterProvider

	errorCount *atomic.Int64

	pass     int
	timings  []time.Duration
	wall     stopwatch
	wallTime time.Duration
	done     bool
	err      error
}

// slot is one instantiated generator and its private ledger.
type slot struct {
	name   string
	gen    generator.Generator
	tags   []ir.Tag
	ledger *ledger.Ledger
	logger *slog.Logger
}

// route sends one tag to one generator.
type route struct {
	tag  ir.Tag
	slot *slot
}

// Option configures an Engine.
type Option func(*Engine)

// WithAutoService binds tag to the built-in autoservice generator. The
// generator is registered after every registry entry.
func WithAutoService(tag ir.Tag) Option {
	return func(e *Engine) {
		e.autoTag = tag
	}
}

// WithClock sets the wall-time source used for pass durations.
func WithClock(src TimeSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.time = src
		}
	}
}

// WithMeterProvider enables OpenTelemetry instruments.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(e *Engine) {
		e.provider = provider
	}
}

// WithObserver receives every engine event.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// WithProcessorName sets the name reported in RunStats.
func WithProcessorName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.processor = name
		}
	}
}

// New instantiates every registered generator once, in registration order,
// and builds the tag dispatch table.
//
// Two generators claiming the same tag is a configuration error. Every
// generator's ledger starts empty and the run's wall clock starts here.
func New(registry *generator.Registry, env *generator.Env, opts ...Option) (*Engine, error) {
	e := &Engine{
		clock:      NewClock(),
		time:       SystemTime{},
		processor:  DefaultProcessorName,
		errorCount: &atomic.Int64{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.env = e.prepareEnv(env)
	e.logger = e.env.Logger

	metrics, err := NewMetrics(e.provider)
	if err != nil {
		return nil, fmt.Errorf("engine metrics: %w", err)
	}
	e.metrics = metrics

	if registry == nil {
		registry = generator.NewRegistry()
	}
	named, err := registry.Instantiate(e.env)
	if err != nil {
		return nil, newConfigError("", "%w", err)
	}
	if e.autoTag != "" {
		for _, n := range named {
			if n.Name == autoservice.Name {
				return nil, newConfigError(n.Name, "name is reserved for the autoservice generator")
			}
		}
		named = append(named, generator.Named{
			Name:      autoservice.Name,
			Generator: autoservice.New(e.autoTag),
		})
	}

	claimed := make(map[ir.Tag]string)
	for _, n := range named {
		s := &slot{
			name:   n.Name,
			gen:    n.Generator,
			tags:   n.Generator.SupportedTags(),
			logger: e.logger.With("generator", n.Name),
		}
		s.ledger = ledger.New(s.logger)
		for _, tag := range s.tags {
			if tag == "" {
				return nil, newConfigError(n.Name, "empty tag in supported tags")
			}
			if owner, ok := claimed[tag]; ok {
				return nil, newConfigError(n.Name, "tag @%s already claimed by generator %s", tag, owner)
			}
			claimed[tag] = n.Name
			e.routes = append(e.routes, route{tag: tag, slot: s})
		}
		e.slots = append(e.slots, s)
	}

	e.logger.Debug("engine ready",
		"processor", e.processor,
		"generators", len(e.slots),
		"tags", len(e.routes),
	)
	e.wall = startStopwatch(e.time)
	return e, nil
}

// prepareEnv fills defaults and counts ERROR diagnostics on the way through.
func (e *Engine) prepareEnv(env *generator.Env) *generator.Env {
	var cp generator.Env
	if env != nil {
		cp = *env
	}
	if cp.Logger == nil {
		cp.Logger = slog.New(slog.DiscardHandler)
	}
	next := cp.Messager
	if next == nil {
		next = diag.MessagerFunc(func(diag.Diagnostic) {})
	}
	cp.Messager = &countingMessager{next: next, errors: e.errorCount}
	return &cp
}

// Env returns the environment handed to generators.
func (e *Engine) Env() *generator.Env {
	return e.env
}

// Generators returns generator names in registration order.
func (e *Engine) Generators() []string {
	out := make([]string, len(e.slots))
	for i, s := range e.slots {
		out[i] = s.name
	}
	return out
}

// Ledger returns a snapshot of the named generator's deferred declarations.
func (e *Engine) Ledger(name string) ([]ledger.Entry, bool) {
	for _, s := range e.slots {
		if s.name == name {
			return s.ledger.Entries(), true
		}
	}
	return nil, false
}

// Pending returns the number of deferred declarations across all ledgers.
func (e *Engine) Pending() int {
	n := 0
	for _, s := range e.slots {
		n += s.ledger.Len()
	}
	return n
}

// Done reports whether the run has ended, by completion or fatal error.
func (e *Engine) Done() bool {
	return e.done
}

// RunPass processes one host pass.
//
// A non-final pass dispatches each tag's batch to its generator. The final
// pass dispatches nothing: it promotes remaining deferrals to errors and
// finalizes every generator. After the final pass RunPass returns
// ErrRunComplete; after a fatal error it returns that error again.
func (e *Engine) RunPass(ctx context.Context, tagged ir.TaggedSet, final bool) error {
	if e.err != nil {
		return e.err
	}
	if e.done {
		return ErrRunComplete
	}

	e.pass++
	sw := startStopwatch(e.time)
	e.logger.Info("processing pass", "pass", e.pass, "final", final)
	e.emit(Event{Kind: EventPassStarted, Pass: e.pass})

	var err error
	if final {
		if n := tagged.Len(); n > 0 {
			e.logger.Debug("ignoring declarations presented with the final pass", "count", n)
		}
		err = e.finalPass(ctx)
	} else {
		err = e.dispatchPass(ctx, tagged)
	}

	elapsed := sw.elapsed()
	e.timings = append(e.timings, elapsed)
	e.metrics.RecordPass(ctx, e.pass, final, elapsed)
	e.logger.Info("pass took", "pass", e.pass, "elapsed_us", elapsed.Microseconds())
	e.emit(Event{Kind: EventPassFinished, Pass: e.pass})

	if err != nil {
		e.err = err
		e.finish()
		return err
	}
	if final {
		e.finish()
		e.logger.Info("processing is over",
			"processor", e.processor,
			"passes", e.pass,
			"errors", e.errorCount.Load(),
			"events", e.clock.Current(),
		)
	}
	return nil
}

func (e *Engine) finish() {
	e.done = true
	e.wallTime = e.wall.elapsed()
}

// passState tracks what each generator has seen in the current pass.
type passState struct {
	dispatched map[*slot]map[ir.DeclID]bool
	deferred   map[*slot]map[ir.DeclID]bool
}

func newPassState() *passState {
	return &passState{
		dispatched: make(map[*slot]map[ir.DeclID]bool),
		deferred:   make(map[*slot]map[ir.DeclID]bool),
	}
}

func (p *passState) mark(m map[*slot]map[ir.DeclID]bool, s *slot, id ir.DeclID) {
	ids, ok := m[s]
	if !ok {
		ids = make(map[ir.DeclID]bool)
		m[s] = ids
	}
	ids[id] = true
}

func (e *Engine) dispatchPass(ctx context.Context, tagged ir.TaggedSet) error {
	state := newPassState()
	before := e.Pending()

	for _, r := range e.routes {
		batch := e.buildBatch(r, tagged, state)
		if len(batch) == 0 {
			e.emit(Event{Kind: EventSkipped, Pass: e.pass, Generator: r.slot.name, Tag: r.tag})
			if e.env.Options.Debug {
				e.env.Messager.Report(diag.Diagnostic{
					Kind:      diag.KindNote,
					Message:   fmt.Sprintf("saw no new declarations tagged with @%s", r.tag),
					Generator: r.slot.name,
				})
			}
			continue
		}
		for _, d := range batch {
			state.mark(state.dispatched, r.slot, d.ID())
		}
		if err := e.dispatch(ctx, r, batch, state); err != nil {
			return err
		}
	}

	if after := e.Pending(); after > 0 {
		e.logger.Info("declarations deferred",
			"pass", e.pass,
			"count", after,
			"new", max(after-before, 0),
		)
	}
	return nil
}

// buildBatch returns the newly tagged declarations for r's tag in host order
// followed by retried ledger entries in ID order. Retried entries leave the
// ledger here.
func (e *Engine) buildBatch(r route, tagged ir.TaggedSet, state *passState) []ir.Declaration {
	s := r.slot
	seen := state.dispatched[s]
	deferredNow := state.deferred[s]
	skip := func(id ir.DeclID) bool {
		return seen[id] || deferredNow[id]
	}

	var batch []ir.Declaration
	inBatch := make(map[ir.DeclID]bool)
	for _, d := range tagged[r.tag] {
		if d == nil || skip(d.ID()) || inBatch[d.ID()] {
			continue
		}
		inBatch[d.ID()] = true
		batch = append(batch, d)
	}

	retried := s.ledger.TakeWhere(func(en ledger.Entry) bool {
		id := en.Decl.ID()
		return (inBatch[id] || en.Decl.HasTag(r.tag)) && !skip(id)
	})
	for _, en := range retried {
		if inBatch[en.Decl.ID()] {
			continue
		}
		inBatch[en.Decl.ID()] = true
		batch = append(batch, en.Decl)
	}
	return batch
}

func (e *Engine) dispatch(ctx context.Context, r route, batch []ir.Declaration, state *passState) error {
	s := r.slot
	pass := generator.NewPass(e.env, e.pass, s.name, r.tag)

	e.metrics.RecordDispatch(ctx, s.name, string(r.tag))
	e.emit(Event{
		Kind:      EventDispatch,
		Pass:      e.pass,
		Generator: s.name,
		Tag:       r.tag,
		Decls:     declIDs(batch),
	})
	s.logger.Debug("dispatching batch", "pass", e.pass, "tag", string(r.tag), "size", len(batch))

	out := e.safeProcess(ctx, s, pass, batch)

	switch out.Status {
	case deferral.StatusOK, deferral.StatusDeferred:
		if err := checkDeferrals(out); err != nil {
			e.fault(ctx, r, err)
			return nil
		}
		e.applyDeferrals(ctx, r, batch, out.Deferrals, state)
		return nil

	case deferral.StatusFatal:
		fe := newProcessFatal(s.name, e.pass, out.Err)
		s.logger.Error("generator failed fatally", "pass", e.pass, "error", out.Err)
		e.emit(Event{
			Kind:      EventFatal,
			Pass:      e.pass,
			Generator: s.name,
			Tag:       r.tag,
			Message:   fe.Error(),
		})
		return fe

	default:
		e.fault(ctx, r, out.Err)
		return nil
	}
}

// safeProcess calls Process, turning a panic into a fault.
func (e *Engine) safeProcess(ctx context.Context, s *slot, pass *generator.Pass, batch []ir.Declaration) (out deferral.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("generator panicked", "pass", e.pass, "panic", rec, "stack", string(debug.Stack()))
			out = deferral.Fault(fmt.Errorf("panic: %v", rec))
		}
	}()
	return s.gen.Process(ctx, pass, batch)
}

// checkDeferrals rejects outcomes whose deferral requests cannot be scoped.
func checkDeferrals(out deferral.Outcome) error {
	if out.Status == deferral.StatusDeferred && len(out.Deferrals) == 0 {
		return errors.New("generator deferred without a signal")
	}
	for _, sig := range out.Deferrals {
		if sig == nil {
			return errors.New("generator returned a nil deferral signal")
		}
	}
	return nil
}

func (e *Engine) applyDeferrals(ctx context.Context, r route, batch []ir.Declaration, sigs []*deferral.Signal, state *passState) {
	s := r.slot
	var added []ir.Declaration
	for _, sig := range sigs {
		for _, d := range deferral.Scope(sig, batch) {
			s.ledger.Put(d, sig)
			state.mark(state.deferred, s, d.ID())
			added = append(added, d)
		}
	}
	if len(added) == 0 {
		return
	}
	e.metrics.RecordDeferrals(ctx, s.name, len(added))
	e.emit(Event{
		Kind:      EventDeferred,
		Pass:      e.pass,
		Generator: s.name,
		Tag:       r.tag,
		Decls:     declIDs(added),
	})
}

func (e *Engine) fault(ctx context.Context, r route, err error) {
	s := r.slot
	if err == nil {
		err = fmt.Errorf("generator returned an unknown outcome")
	}
	msg := fmt.Sprintf("caught error in generator %s: %v", s.name, err)

	s.logger.Error("generator fault", "pass", e.pass, "tag", string(r.tag), "error", err)
	e.env.Messager.Report(diag.Diagnostic{
		Kind:      diag.KindError,
		Message:   msg,
		Generator: s.name,
	})
	e.metrics.RecordFault(ctx, s.name)
	e.emit(Event{
		Kind:      EventFault,
		Pass:      e.pass,
		Generator: s.name,
		Tag:       r.tag,
		Message:   msg,
	})
}

func (e *Engine) finalPass(ctx context.Context) error {
	for _, s := range e.slots {
		e.promote(ctx, s)
	}
	for _, s := range e.slots {
		if err := e.safeFinalize(ctx, s); err != nil {
			fe := newFinalizeError(s.name, e.pass, err)
			s.logger.Error("finalize failed", "error", err)
			e.emit(Event{
				Kind:      EventFatal,
				Pass:      e.pass,
				Generator: s.name,
				Message:   fe.Error(),
			})
			return fe
		}
		e.emit(Event{Kind: EventFinalized, Pass: e.pass, Generator: s.name})
	}
	return nil
}

// promote turns every remaining ledger entry of s into one ERROR diagnostic.
// The ledger is empty afterwards.
func (e *Engine) promote(ctx context.Context, s *slot) {
	entries := s.ledger.Drain()
	if len(entries) == 0 {
		return
	}
	s.logger.Warn("generator had declarations deferred at end of processing", "count", len(entries))

	ids := make([]ir.DeclID, 0, len(entries))
	for _, en := range entries {
		target := en.Decl
		if en.Signal.Source != nil {
			target = en.Signal.Source
		}
		e.env.Messager.Report(diag.Diagnostic{
			Kind:      diag.KindError,
			Message:   en.Signal.Message,
			Decl:      target,
			Generator: s.name,
		})
		ids = append(ids, target.ID())
	}
	e.metrics.RecordPromotions(ctx, s.name, len(entries))
	e.emit(Event{Kind: EventPromoted, Pass: e.pass, Generator: s.name, Decls: ids})
}

func (e *Engine) safeFinalize(ctx context.Context, s *slot) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("finalize panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.gen.Finalize(ctx, e.env)
}

func (e *Engine) emit(ev Event) {
	if e.observer == nil {
		return
	}
	ev.Seq = e.clock.Next()
	e.observer.OnEvent(ev)
}

// countingMessager forwards diagnostics and counts errors.
type countingMessager struct {
	next   diag.Messager
	errors *atomic.Int64
}

func (m *countingMessager) Report(d diag.Diagnostic) {
	if d.Kind == diag.KindError {
		m.errors.Add(1)
	}
	m.next.Report(d)
}
