package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines an engine conformance scenario.
// A scenario scripts declarations, generators and host passes, then asserts
// on the resulting event trace, diagnostics and persisted resources.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Debug enables debug-only notes.
	Debug bool `yaml:"debug,omitempty"`

	// AutoService binds the built-in autoservice generator.
	AutoService *AutoServiceSetup `yaml:"autoservice,omitempty"`

	// Declarations lists every declaration the host knows about.
	Declarations []DeclSpec `yaml:"declarations"`

	// Generators lists scripted generators in registration order.
	Generators []GeneratorSpec `yaml:"generators,omitempty"`

	// Passes lists host passes in order. The last pass must be final.
	Passes []PassSpec `yaml:"passes"`

	// Assertions validate the run.
	// Supported types: trace_contains, trace_order, trace_count,
	// diagnostic, finalized, resource, run_error
	Assertions []Assertion `yaml:"assertions"`
}

// AutoServiceSetup configures the autoservice generator and the class output
// it merges with.
type AutoServiceSetup struct {
	Tag string `yaml:"tag"`

	// Existing seeds auto-discovery files: service type -> lines.
	Existing map[string][]string `yaml:"existing,omitempty"`
}

// DeclSpec describes one declaration.
type DeclSpec struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind,omitempty"`

	// Tags are attached with no attributes.
	Tags []string `yaml:"tags,omitempty"`

	// Attrs attaches tags with attributes: tag -> key -> value.
	Attrs map[string]map[string]string `yaml:"attrs,omitempty"`

	// Enclosing is the ID of the enclosing declaration.
	Enclosing string `yaml:"enclosing,omitempty"`
}

// GeneratorSpec describes a scripted generator.
type GeneratorSpec struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`

	// Form is "batch" (default) or "single".
	Form string `yaml:"form,omitempty"`

	// Rules script Process behavior. The first matching rule wins; a
	// declaration with no matching rule is handled.
	Rules []Rule `yaml:"rules,omitempty"`

	// Finalize is "ok" (default), "error" or "panic".
	Finalize string `yaml:"finalize,omitempty"`

	// FinalizeMessage is the finalize error or panic message.
	FinalizeMessage string `yaml:"finalize_message,omitempty"`
}

// Rule scripts one behavior.
type Rule struct {
	// Pass restricts the rule to one pass number. Zero matches every pass.
	Pass int `yaml:"pass,omitempty"`

	// Decl restricts the rule to one declaration. Empty matches the whole
	// batch, before any per-declaration rule.
	Decl string `yaml:"decl,omitempty"`

	// Action is one of ok, defer, defer-batch, fault, fatal, panic.
	Action string `yaml:"action"`

	Message string `yaml:"message,omitempty"`
	Source  string `yaml:"source,omitempty"`
	Root    string `yaml:"root,omitempty"`
}

// PassSpec is one host pass.
type PassSpec struct {
	// Tagged lists newly tagged declarations: tag -> IDs in host order.
	Tagged map[string][]string `yaml:"tagged,omitempty"`

	// AddTags attaches tags to declarations before the pass: ID -> tags.
	AddTags map[string][]string `yaml:"add_tags,omitempty"`

	Final bool `yaml:"final,omitempty"`
}

// Assertion validates the run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event matching Event/Generator/Tag/Pass/Decls exists
	// - "trace_order": Events ("kind" or "kind:generator") appear in order
	// - "trace_count": events matching Event/Generator occur exactly Count times
	// - "diagnostic": a diagnostic matching Kind/Message/Decl/Generator exists
	//   (exactly Count times when Count > 0)
	// - "finalized": Generator was finalized exactly Count times
	// - "resource": the class-output file at Path has exactly Lines, or is
	//   absent when Absent is set
	// - "run_error": the run failed with Code
	Type string `yaml:"type"`

	Event     string   `yaml:"event,omitempty"`
	Generator string   `yaml:"generator,omitempty"`
	Tag       string   `yaml:"tag,omitempty"`
	Pass      int      `yaml:"pass,omitempty"`
	Decls     []string `yaml:"decls,omitempty"`
	Events    []string `yaml:"events,omitempty"`
	Count     int      `yaml:"count,omitempty"`

	Kind    string `yaml:"kind,omitempty"`
	Message string `yaml:"message,omitempty"`
	Decl    string `yaml:"decl,omitempty"`

	Path   string   `yaml:"path,omitempty"`
	Lines  []string `yaml:"lines,omitempty"`
	Absent bool     `yaml:"absent,omitempty"`

	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertDiagnostic    = "diagnostic"
	AssertFinalized     = "finalized"
	AssertResource      = "resource"
	AssertRunError      = "run_error"
)

// Rule action constants.
const (
	ActionOK         = "ok"
	ActionDefer      = "defer"
	ActionDeferBatch = "defer-batch"
	ActionFault      = "fault"
	ActionFatal      = "fatal"
	ActionPanic      = "panic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and every
// declaration reference resolves.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Passes) == 0 {
		return fmt.Errorf("passes list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.AutoService != nil && s.AutoService.Tag == "" {
		return fmt.Errorf("autoservice: tag is required")
	}

	ids := make(map[string]bool, len(s.Declarations))
	for i, d := range s.Declarations {
		if d.ID == "" {
			return fmt.Errorf("declarations[%d]: id is required", i)
		}
		if ids[d.ID] {
			return fmt.Errorf("declarations[%d]: duplicate id %s", i, d.ID)
		}
		ids[d.ID] = true
	}
	ref := func(where, id string) error {
		if id != "" && !ids[id] {
			return fmt.Errorf("%s: unknown declaration %s", where, id)
		}
		return nil
	}
	for i, d := range s.Declarations {
		if err := ref(fmt.Sprintf("declarations[%d].enclosing", i), d.Enclosing); err != nil {
			return err
		}
	}

	names := make(map[string]bool)
	for i, g := range s.Generators {
		if g.Name == "" {
			return fmt.Errorf("generators[%d]: name is required", i)
		}
		if names[g.Name] {
			return fmt.Errorf("generators[%d]: duplicate name %s", i, g.Name)
		}
		names[g.Name] = true
		if len(g.Tags) == 0 {
			return fmt.Errorf("generators[%d]: tags list is required", i)
		}
		switch g.Form {
		case "", "batch", "single":
		default:
			return fmt.Errorf("generators[%d]: unknown form %q", i, g.Form)
		}
		switch g.Finalize {
		case "", "ok", "error", "panic":
		default:
			return fmt.Errorf("generators[%d]: unknown finalize %q", i, g.Finalize)
		}
		for j, r := range g.Rules {
			where := fmt.Sprintf("generators[%d].rules[%d]", i, j)
			if err := validateRule(where, &r); err != nil {
				return err
			}
			for _, id := range []string{r.Decl, r.Source, r.Root} {
				if err := ref(where, id); err != nil {
					return err
				}
			}
		}
	}

	for i, p := range s.Passes {
		where := fmt.Sprintf("passes[%d]", i)
		if p.Final != (i == len(s.Passes)-1) {
			return fmt.Errorf("%s: exactly the last pass must be final", where)
		}
		for _, list := range p.Tagged {
			for _, id := range list {
				if err := ref(where+".tagged", id); err != nil {
					return err
				}
			}
		}
		for id := range p.AddTags {
			if err := ref(where+".add_tags", id); err != nil {
				return err
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(where string, r *Rule) error {
	switch r.Action {
	case ActionOK, ActionDefer, ActionFault, ActionFatal, ActionPanic:
	case ActionDeferBatch:
		if r.Decl != "" {
			return fmt.Errorf("%s: defer-batch applies to the whole batch; decl must be empty", where)
		}
	case "":
		return fmt.Errorf("%s: action is required", where)
	default:
		return fmt.Errorf("%s: unknown action %q", where, r.Action)
	}
	if r.Action != ActionOK && r.Message == "" {
		return fmt.Errorf("%s: message is required for %s", where, r.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertDiagnostic:
		if a.Kind == "" || a.Message == "" {
			return fmt.Errorf("assertions[%d]: kind and message are required for diagnostic", index)
		}
	case AssertFinalized:
		if a.Generator == "" {
			return fmt.Errorf("assertions[%d]: generator is required for finalized", index)
		}
	case AssertResource:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for resource", index)
		}
		if a.Absent && len(a.Lines) > 0 {
			return fmt.Errorf("assertions[%d]: absent resource cannot list lines", index)
		}
	case AssertRunError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for run_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
