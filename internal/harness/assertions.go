package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] pass %d %s", ev.Seq, ev.Pass, ev.Label())
			if ev.Tag != "" {
				fmt.Fprintf(&buf, " @%s", ev.Tag)
			}
			if len(ev.Decls) > 0 {
				fmt.Fprintf(&buf, " %v", ev.Decls)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// eventMatches reports whether ev satisfies every set filter of a.
// Decls must match exactly and in order when given.
func eventMatches(ev TraceEvent, a Assertion) bool {
	if ev.Kind != a.Event {
		return false
	}
	if a.Generator != "" && ev.Generator != a.Generator {
		return false
	}
	if a.Tag != "" && ev.Tag != a.Tag {
		return false
	}
	if a.Pass != 0 && ev.Pass != a.Pass {
		return false
	}
	if a.Decls != nil && !slices.Equal(ev.Decls, a.Decls) {
		return false
	}
	return true
}

func describeEvent(a Assertion) string {
	var parts []string
	parts = append(parts, a.Event)
	if a.Generator != "" {
		parts = append(parts, "generator="+a.Generator)
	}
	if a.Tag != "" {
		parts = append(parts, "tag="+a.Tag)
	}
	if a.Pass != 0 {
		parts = append(parts, fmt.Sprintf("pass=%d", a.Pass))
	}
	if a.Decls != nil {
		parts = append(parts, fmt.Sprintf("decls=%v", a.Decls))
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks if the trace contains an event matching the
// assertion's filters.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, ev := range trace {
		if eventMatches(ev, assertion) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeEvent(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that labels appear as a subsequence of the trace.
// Events don't need to be consecutive (intervening events are allowed) and
// a label may repeat.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Events {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Label() == want || ev.Kind == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   fmt.Sprintf("%s (index %d) not found after %v", want, i, assertion.Events[:i]),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the number of events matching the filters.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if eventMatches(ev, assertion) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describeEvent(assertion)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertDiagnostic checks for diagnostics with the given kind and message.
// Decl and Generator filter when set. Count > 0 requires an exact count.
func assertDiagnostic(diags []DiagnosticRecord, assertion Assertion) error {
	count := 0
	for _, d := range diags {
		if d.Kind != assertion.Kind || d.Message != assertion.Message {
			continue
		}
		if assertion.Decl != "" && d.Decl != assertion.Decl {
			continue
		}
		if assertion.Generator != "" && d.Generator != assertion.Generator {
			continue
		}
		count++
	}

	want := fmt.Sprintf("%s %q", assertion.Kind, assertion.Message)
	if assertion.Decl != "" {
		want += " on " + assertion.Decl
	}
	switch {
	case assertion.Count > 0 && count != assertion.Count:
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%d x %s", assertion.Count, want),
			Actual:   fmt.Sprintf("%d matching of %d diagnostics: %s", count, len(diags), formatDiagnostics(diags)),
		}
	case count == 0:
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: want,
			Actual:   "not reported; got " + formatDiagnostics(diags),
		}
	}
	return nil
}

func formatDiagnostics(diags []DiagnosticRecord) string {
	if len(diags) == 0 {
		return "none"
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = fmt.Sprintf("%s %q", d.Kind, d.Message)
	}
	return strings.Join(parts, "; ")
}

func assertFinalized(result *Result, assertion Assertion) error {
	got, ok := result.Finalized[assertion.Generator]
	if !ok {
		return fmt.Errorf("finalized: unknown generator %s", assertion.Generator)
	}
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertFinalized,
			Expected: fmt.Sprintf("%s finalized %d times", assertion.Generator, assertion.Count),
			Actual:   fmt.Sprintf("%d times", got),
		}
	}
	return nil
}

func assertResource(resources map[string][]string, assertion Assertion) error {
	lines, ok := resources[assertion.Path]
	if assertion.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertResource,
				Expected: assertion.Path + " absent",
				Actual:   fmt.Sprintf("present with %v", lines),
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertResource,
			Expected: fmt.Sprintf("%s with %v", assertion.Path, assertion.Lines),
			Actual:   fmt.Sprintf("absent; resources: %v", sortedKeys(resources)),
		}
	}
	if !slices.Equal(lines, assertion.Lines) {
		return &AssertionError{
			Type:     AssertResource,
			Expected: fmt.Sprintf("%s with %v", assertion.Path, assertion.Lines),
			Actual:   fmt.Sprintf("%v", lines),
		}
	}
	return nil
}

func assertRunError(result *Result, assertion Assertion) error {
	if result.RunError != assertion.Code {
		actual := result.RunError
		if actual == "" {
			actual = "run completed"
		}
		return &AssertionError{
			Type:     AssertRunError,
			Expected: assertion.Code,
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result.Diagnostics, assertion)
		case AssertFinalized:
			err = assertFinalized(result, assertion)
		case AssertResource:
			err = assertResource(result.Resources, assertion)
		case AssertRunError:
			err = assertRunError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
