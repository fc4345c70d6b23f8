package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclDefaultsIDToName(t *testing.T) {
	d := NewDecl("", "pkg.Impl", KindType)
	assert.Equal(t, DeclID("pkg.Impl"), d.ID())
	assert.Equal(t, "pkg.Impl", d.Name())
	assert.Equal(t, KindType, d.Kind())
	assert.Nil(t, d.Enclosing())
}

func TestDeclAnnotations(t *testing.T) {
	attrs := map[string]string{"type": "svc.Foo"}
	d := NewDecl("pkg.Impl", "pkg.Impl", KindType).AddAnnotation("AutoService", attrs)

	// Mutating the caller's map must not leak into the declaration.
	attrs["type"] = "other"

	require.True(t, d.HasTag("AutoService"))
	assert.False(t, d.HasTag("autoservice"), "tags are case-sensitive")

	a, ok := d.Annotation("AutoService")
	require.True(t, ok)
	v, ok := a.Value("type")
	require.True(t, ok)
	assert.Equal(t, "svc.Foo", v)

	_, ok = a.Value("missing")
	assert.False(t, ok)

	d.AddAnnotation("Builder", nil)
	assert.Equal(t, []Tag{"AutoService", "Builder"}, d.Tags())

	d.RemoveAnnotation("AutoService")
	assert.False(t, d.HasTag("AutoService"))
}

func TestDeclEnclosing(t *testing.T) {
	outer := NewDecl("pkg.Outer", "pkg.Outer", KindType)
	inner := NewDecl("pkg.Outer.Run", "pkg.Outer.Run", KindMethod).WithEnclosing(outer)
	require.NotNil(t, inner.Enclosing())
	assert.Equal(t, DeclID("pkg.Outer"), inner.Enclosing().ID())
}

func TestTaggedSetOf(t *testing.T) {
	a := NewDecl("a", "a", KindType).AddAnnotation("X", nil).AddAnnotation("Y", nil)
	b := NewDecl("b", "b", KindType).AddAnnotation("Y", nil)
	c := NewDecl("c", "c", KindType)

	set := TaggedSetOf([]Tag{"X", "Y"}, []Declaration{a, b, c})

	assert.Equal(t, []Tag{"X", "Y"}, set.Tags())
	assert.Equal(t, 3, set.Len())
	assert.Len(t, set["X"], 1)
	assert.Len(t, set["Y"], 2)
	assert.Equal(t, DeclID("a"), set["Y"][0].ID(), "host order is preserved")
}

func TestContainsAndSort(t *testing.T) {
	a := NewDecl("a", "a", KindType)
	b := NewDecl("b", "b", KindType)
	other := NewDecl("b", "b-again", KindType)

	decls := []Declaration{b, a}
	assert.True(t, Contains(decls, other), "identity is by ID")
	assert.False(t, Contains(decls, nil))
	assert.False(t, Contains(decls, NewDecl("z", "z", KindType)))

	SortByID(decls)
	assert.Equal(t, DeclID("a"), decls[0].ID())
	assert.Equal(t, DeclID("b"), decls[1].ID())
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "null", NameOf(nil))
	assert.Equal(t, "pkg.X", NameOf(NewDecl("", "pkg.X", KindType)))
}
