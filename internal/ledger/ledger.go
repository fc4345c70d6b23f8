// Package ledger records, per generator, which declarations are waiting for
// a later pass and why.
package ledger

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/ir"
)

// Entry is one deferred declaration and the signal that most recently
// deferred it.
type Entry struct {
	Decl   ir.Declaration
	Signal *deferral.Signal
}

// Ledger maps declaration IDs to their latest deferral.
//
// The engine is the only writer and mutates a ledger only between dispatch
// calls. The mutex keeps the container safe if a host ever dispatches
// concurrently.
type Ledger struct {
	mu      sync.Mutex
	entries map[ir.DeclID]Entry
	logger  *slog.Logger
}

// New creates an empty ledger. A nil logger discards log output.
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{
		entries: make(map[ir.DeclID]Entry),
		logger:  logger,
	}
}

// Put records decl as deferred by sig, replacing any earlier reason.
func (l *Ledger) Put(decl ir.Declaration, sig *deferral.Signal) {
	l.logger.Warn("deferring declaration",
		"decl", decl.Name(),
		"reason", sig.Message,
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[decl.ID()] = Entry{Decl: decl, Signal: sig}
}

// TakeWhere removes and returns every entry matching pred, sorted by
// declaration ID.
func (l *Ledger) TakeWhere(pred func(Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var taken []Entry
	for id, e := range l.entries {
		if pred(e) {
			taken = append(taken, e)
			delete(l.entries, id)
		}
	}
	sortEntries(taken)
	return taken
}

// Entries returns a snapshot of all entries sorted by declaration ID.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Drain removes and returns all entries sorted by declaration ID.
func (l *Ledger) Drain() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	l.entries = make(map[ir.DeclID]Entry)
	sortEntries(out)
	return out
}

// Len returns the number of deferred declarations.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Decl.ID() < entries[j].Decl.ID()
	})
}
