// Package host provides pass sources for the engine: a scripted host for
// tests and a driver that scans Go sources and rescans generated files
// until generation settles.
package host

import (
	"context"
	"errors"

	"github.com/roach88/turbine/internal/ir"
)

// ErrExhausted is returned when a host is asked for a pass after the final
// pass.
var ErrExhausted = errors.New("host: no passes left")

// TagAll groups decls under every tag each one carries.
func TagAll(decls []*ir.Decl) ir.TaggedSet {
	set := ir.TaggedSet{}
	for _, d := range decls {
		for _, tag := range d.Tags() {
			set.Add(tag, d)
		}
	}
	return set
}

// Static replays a fixed list of passes. The last pass is final.
type Static struct {
	passes []ir.TaggedSet
	next   int
}

// NewStatic creates a host presenting passes in order. With no passes the
// first call is the final pass.
func NewStatic(passes ...ir.TaggedSet) *Static {
	return &Static{passes: passes}
}

// NextPass returns the next scripted pass.
func (s *Static) NextPass(context.Context) (ir.TaggedSet, bool, error) {
	if len(s.passes) == 0 && s.next == 0 {
		s.next++
		return ir.TaggedSet{}, true, nil
	}
	if s.next >= len(s.passes) {
		return nil, false, ErrExhausted
	}
	tagged := s.passes[s.next]
	s.next++
	return tagged, s.next == len(s.passes), nil
}
