package harness

import (
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/engine"
)

// TraceEvent is the serializable form of an engine.Event.
// Decls hold declaration IDs in dispatch order.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Kind      string   `json:"kind"`
	Pass      int      `json:"pass"`
	Generator string   `json:"generator,omitempty"`
	Tag       string   `json:"tag,omitempty"`
	Decls     []string `json:"decls,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Label returns "kind" or "kind:generator", the form trace_order matches.
func (e TraceEvent) Label() string {
	if e.Generator == "" {
		return e.Kind
	}
	return e.Kind + ":" + e.Generator
}

// DiagnosticRecord is the serializable form of a diag.Diagnostic.
type DiagnosticRecord struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Decl      string `json:"decl,omitempty"`
	Generator string `json:"generator,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Trace contains every engine event in Seq order.
	Trace []TraceEvent `json:"trace"`

	// Diagnostics contains every reported diagnostic in report order.
	Diagnostics []DiagnosticRecord `json:"diagnostics"`

	// Finalized counts Finalize calls per scripted generator.
	Finalized map[string]int `json:"finalized"`

	// Resources holds class-output files after the run: path -> lines.
	Resources map[string][]string `json:"resources"`

	// RunError is the fatal error code, or "" when the run completed.
	RunError string `json:"run_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		Diagnostics: []DiagnosticRecord{},
		Finalized:   make(map[string]int),
		Resources:   make(map[string][]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends an engine event to the trace.
func (r *Result) AddEvent(ev engine.Event) {
	var decls []string
	for _, id := range ev.Decls {
		decls = append(decls, string(id))
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		Pass:      ev.Pass,
		Generator: ev.Generator,
		Tag:       string(ev.Tag),
		Decls:     decls,
		Message:   ev.Message,
	})
}

// AddDiagnostic appends a reported diagnostic.
func (r *Result) AddDiagnostic(d diag.Diagnostic) {
	rec := DiagnosticRecord{
		Kind:      string(d.Kind),
		Message:   d.Message,
		Generator: d.Generator,
	}
	if d.Decl != nil {
		rec.Decl = string(d.Decl.ID())
	}
	r.Diagnostics = append(r.Diagnostics, rec)
}
