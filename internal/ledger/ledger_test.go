package ledger

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/ir"
)

func carrying(tag ir.Tag) func(Entry) bool {
	return func(e Entry) bool { return e.Decl.HasTag(tag) }
}

func tagged(id string, tags ...ir.Tag) *ir.Decl {
	d := ir.NewDecl(ir.DeclID(id), id, ir.KindType)
	for _, tag := range tags {
		d.AddAnnotation(tag, nil)
	}
	return d
}

// TestPutReplacesEarlierReason tests that keys are unique and the last deferral wins.
func TestPutReplacesEarlierReason(t *testing.T) {
	l := New(nil)
	d := tagged("pkg.A", "X")

	l.Put(d, deferral.New("first"))
	l.Put(d, deferral.New("second"))

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Signal.Message)
}

func TestPutLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Put(tagged("pkg.A"), deferral.New("waiting on Y"))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "decl=pkg.A")
	assert.Contains(t, out, `reason="waiting on Y"`)
}

// TestTakeWhereOnlyMatching tests that TakeWhere removes only matching entries.
func TestTakeWhereOnlyMatching(t *testing.T) {
	l := New(nil)
	l.Put(tagged("pkg.C", "X"), deferral.New("c"))
	l.Put(tagged("pkg.A", "X", "Y"), deferral.New("a"))
	l.Put(tagged("pkg.B", "Y"), deferral.New("b"))

	taken := l.TakeWhere(carrying("X"))

	require.Len(t, taken, 2)
	assert.Equal(t, ir.DeclID("pkg.A"), taken[0].Decl.ID(), "sorted by ID")
	assert.Equal(t, ir.DeclID("pkg.C"), taken[1].Decl.ID())
	left := l.Entries()
	require.Len(t, left, 1)
	assert.Equal(t, ir.DeclID("pkg.B"), left[0].Decl.ID())
}

// TestTakeWhereSeesTagsAddedLater tests that retry eligibility uses the declaration's current tags.
func TestTakeWhereSeesTagsAddedLater(t *testing.T) {
	l := New(nil)
	d := tagged("pkg.A")
	l.Put(d, deferral.New("untagged"))

	assert.Empty(t, l.TakeWhere(carrying("X")))

	d.AddAnnotation("X", nil)
	assert.Len(t, l.TakeWhere(carrying("X")), 1)
	assert.Equal(t, 0, l.Len())
}

func TestEntriesAndDrain(t *testing.T) {
	l := New(nil)
	l.Put(tagged("c"), deferral.New("c"))
	l.Put(tagged("a"), deferral.New("a"))
	snapshot := l.Entries()
	require.Len(t, snapshot, 2)
	assert.Equal(t, 2, l.Len(), "Entries does not mutate")

	drained := l.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, ir.DeclID("a"), drained[0].Decl.ID())
	assert.Equal(t, ir.DeclID("c"), drained[1].Decl.ID())
	assert.Equal(t, 0, l.Len())
}

// TestConcurrentPut tests that the ledger is safe under concurrent writers.
func TestConcurrentPut(t *testing.T) {
	l := New(nil)
	decls := make([]*ir.Decl, 50)
	for i := range decls {
		decls[i] = tagged(string(rune('a'+i%26))+string(rune('a'+i/26)), "X")
	}

	var wg sync.WaitGroup
	for _, d := range decls {
		wg.Add(1)
		go func(d *ir.Decl) {
			defer wg.Done()
			l.Put(d, deferral.New("m"))
		}(d)
	}
	wg.Wait()

	assert.Equal(t, 50, l.Len())
	assert.Len(t, l.TakeWhere(carrying("X")), 50)
}
