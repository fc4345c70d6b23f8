package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/turbine/internal/ir"
)

// Snapshot captures the observable outcome of a scenario execution.
// Event messages are left out; diagnostics carry the user-visible text.
type Snapshot struct {
	ScenarioName string              `json:"scenario_name"`
	Trace        []TraceEvent        `json:"trace"`
	Diagnostics  []DiagnosticRecord  `json:"diagnostics"`
	Resources    map[string][]string `json:"resources"`
	RunError     string              `json:"run_error,omitempty"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Diagnostics:  result.Diagnostics,
		Resources:    result.Resources,
		RunError:     result.RunError,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":  ev.Seq,
			"kind": ev.Kind,
			"pass": ev.Pass,
		}
		if ev.Generator != "" {
			m["generator"] = ev.Generator
		}
		if ev.Tag != "" {
			m["tag"] = ev.Tag
		}
		if len(ev.Decls) > 0 {
			m["decls"] = ev.Decls
		}
		trace[i] = m
	}

	diags := make([]any, len(s.Diagnostics))
	for i, d := range s.Diagnostics {
		m := map[string]any{
			"kind":    d.Kind,
			"message": d.Message,
		}
		if d.Decl != "" {
			m["decl"] = d.Decl
		}
		if d.Generator != "" {
			m["generator"] = d.Generator
		}
		diags[i] = m
	}

	resources := make(map[string]any, len(s.Resources))
	for path, lines := range s.Resources {
		if lines == nil {
			lines = []string{}
		}
		resources[path] = lines
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"diagnostics":   diags,
		"resources":     resources,
	}
	if s.RunError != "" {
		out["run_error"] = s.RunError
	}
	return out
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
