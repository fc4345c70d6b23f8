// Package diag carries user-visible diagnostics from generators and the
// engine back to the host.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/turbine/internal/ir"
)

// Kind is the severity of a diagnostic.
type Kind string

const (
	KindError   Kind = "ERROR"
	KindWarning Kind = "WARNING"
	KindNote    Kind = "NOTE"
	KindOther   Kind = "OTHER"
)

// Diagnostic is one user-visible message.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Decl is the declaration the message is attached to, if any.
	Decl ir.Declaration `json:"-"`

	// Generator names the generator the message is attributed to for
	// faults that have no declaration.
	Generator string `json:"generator,omitempty"`
}

// DeclName returns the attached declaration's name, or "" when detached.
func (d Diagnostic) DeclName() string {
	if d.Decl == nil {
		return ""
	}
	return d.Decl.Name()
}

// String formats the diagnostic as "KIND [decl]: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	switch {
	case d.Decl != nil:
		fmt.Fprintf(&b, " [%s]", d.Decl.Name())
	case d.Generator != "":
		fmt.Fprintf(&b, " [generator %s]", d.Generator)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Messager receives diagnostics.
type Messager interface {
	Report(d Diagnostic)
}

// MessagerFunc adapts a function to Messager.
type MessagerFunc func(d Diagnostic)

// Report calls f(d).
func (f MessagerFunc) Report(d Diagnostic) {
	f(d)
}

// Errorf reports an ERROR attached to decl (which may be nil).
func Errorf(m Messager, decl ir.Declaration, format string, args ...any) {
	m.Report(Diagnostic{Kind: KindError, Message: fmt.Sprintf(format, args...), Decl: decl})
}

// Notef reports a NOTE attached to decl (which may be nil).
func Notef(m Messager, decl ir.Declaration, format string, args ...any) {
	m.Report(Diagnostic{Kind: KindNote, Message: fmt.Sprintf(format, args...), Decl: decl})
}

// Collector records every diagnostic in order. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report records d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// All returns a copy of the recorded diagnostics.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Errors returns only the ERROR diagnostics.
func (c *Collector) Errors() []Diagnostic {
	return c.OfKind(KindError)
}

// OfKind returns the diagnostics of the given kind.
func (c *Collector) OfKind(kind Kind) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any ERROR was recorded.
func (c *Collector) HasErrors() bool {
	return len(c.Errors()) > 0
}

// LoggingMessager mirrors every diagnostic to a logger before forwarding it.
type LoggingMessager struct {
	next   Messager
	logger *slog.Logger
}

// NewLoggingMessager wraps next. A nil next drops diagnostics after logging.
func NewLoggingMessager(next Messager, logger *slog.Logger) *LoggingMessager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMessager{next: next, logger: logger}
}

// Report logs d at the level matching its kind and forwards it.
func (m *LoggingMessager) Report(d Diagnostic) {
	attrs := []any{"decl", ir.NameOf(d.Decl)}
	if d.Generator != "" {
		attrs = append(attrs, "generator", d.Generator)
	}
	m.logger.Log(context.Background(), LevelFor(d.Kind), d.Message, attrs...)
	if m.next != nil {
		m.next.Report(d)
	}
}

// LevelFor maps a diagnostic kind to a log level.
func LevelFor(kind Kind) slog.Level {
	switch kind {
	case KindError:
		return slog.LevelError
	case KindWarning:
		return slog.LevelWarn
	case KindNote:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
