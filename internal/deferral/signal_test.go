package deferral

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turbine/internal/ir"
)

func decl(id string) *ir.Decl {
	return ir.NewDecl(ir.DeclID(id), id, ir.KindType)
}

func ids(decls []ir.Declaration) []ir.DeclID {
	out := make([]ir.DeclID, len(decls))
	for i, d := range decls {
		out[i] = d.ID()
	}
	return out
}

// TestScope tests the three retry scoping rules.
func TestScope(t *testing.T) {
	a, b, c := decl("pkg.A"), decl("pkg.B"), decl("pkg.C")
	outer := decl("pkg.Outer")
	batch := []ir.Declaration{a, b, c}

	tests := []struct {
		name string
		sig  *Signal
		want []ir.DeclID
	}{
		{"root wins", NewRooted("m", b, outer), []ir.DeclID{"pkg.Outer"}},
		{"root without source", &Signal{Message: "m", Root: a}, []ir.DeclID{"pkg.A"}},
		{"source in batch", NewFor("m", b), []ir.DeclID{"pkg.B"}},
		{"source outside batch", NewFor("m", decl("pkg.Z")), []ir.DeclID{"pkg.A", "pkg.B", "pkg.C"}},
		{"no source or root", New("m"), []ir.DeclID{"pkg.A", "pkg.B", "pkg.C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Scope(tt.sig, batch)))
		})
	}
}

// TestScopeDoesNotAliasBatch tests that the coarse fallback copies the batch.
func TestScopeDoesNotAliasBatch(t *testing.T) {
	batch := []ir.Declaration{decl("a"), decl("b")}
	out := Scope(New("m"), batch)
	out[0] = decl("z")
	assert.Equal(t, ir.DeclID("a"), batch[0].ID())
}

// TestScopeEmptyBatch tests that an unscoped signal against no batch defers nothing.
func TestScopeEmptyBatch(t *testing.T) {
	assert.Empty(t, Scope(New("m"), nil))
}

func TestRewrapPreservesSource(t *testing.T) {
	src := decl("pkg.T.M")
	root := decl("pkg.T")
	sig := NewFor("waiting on Y", src)

	rewrapped := Rewrap(sig, root)

	assert.Equal(t, "waiting on Y", rewrapped.Message)
	assert.Same(t, src, rewrapped.Source)
	assert.Same(t, root, rewrapped.Root)
	assert.Nil(t, sig.Root, "original signal is unchanged")
}

func TestSignalIsError(t *testing.T) {
	var err error = NewFor("waiting on Y", decl("x"))
	assert.EqualError(t, err, "waiting on Y")

	wrapped := fmt.Errorf("outer: %w", err)
	sig, ok := AsSignal(wrapped)
	require.True(t, ok)
	assert.Equal(t, "waiting on Y", sig.Message)

	_, ok = AsSignal(errors.New("plain"))
	assert.False(t, ok)
}

// TestFromError tests classification of generator errors into outcomes.
func TestFromError(t *testing.T) {
	sig := New("later")

	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"signal", sig, StatusDeferred},
		{"wrapped signal", fmt.Errorf("x: %w", sig), StatusDeferred},
		{"fatal", MarkFatal(errors.New("disk")), StatusFatal},
		{"wrapped fatal", fmt.Errorf("x: %w", MarkFatal(errors.New("disk"))), StatusFatal},
		{"plain", errors.New("boom"), StatusFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FromError(tt.err)
			assert.Equal(t, tt.want, out.Status)
		})
	}

	out := FromError(sig)
	require.Len(t, out.Deferrals, 1)
	assert.Same(t, sig, out.Deferrals[0])
}

func TestMarkFatal(t *testing.T) {
	assert.NoError(t, MarkFatal(nil))

	base := errors.New("disk full")
	err := MarkFatal(base)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, base)
	assert.EqualError(t, err, "disk full")
	assert.False(t, IsFatal(base))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "deferred", StatusDeferred.String())
	assert.Equal(t, "fault", StatusFault.String())
	assert.Equal(t, "fatal", StatusFatal.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
