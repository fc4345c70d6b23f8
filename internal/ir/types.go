package ir

import "sort"

// Tag identifies a category of interest on a declaration, analogous to an
// annotation type. Generators declare the tags they want to see.
type Tag string

// String returns the tag name.
func (t Tag) String() string {
	return string(t)
}

// DeclID is the stable identity of a declaration as seen by the host.
// IDs are unique within a run and stable across passes.
type DeclID string

// Kind categorizes a declaration.
type Kind string

const (
	KindType      Kind = "type"
	KindInterface Kind = "interface"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindField     Kind = "field"
	KindPackage   Kind = "package"
)

// Annotation is one trigger tag attached to a declaration together with
// its key/value attributes (e.g. `type=svc.Foo`).
type Annotation struct {
	Tag    Tag               `json:"tag"`
	Values map[string]string `json:"values,omitempty"`
}

// Value returns the attribute value for key, if present.
func (a Annotation) Value(key string) (string, bool) {
	v, ok := a.Values[key]
	return v, ok
}

// Declaration is an opaque handle to one unit of program structure supplied
// by the host.
//
// Implementations must be safe to retain across passes: the engine keeps
// deferred declarations in its ledgers and asks them for their current tags
// when deciding whether to retry them.
type Declaration interface {
	// ID returns the stable identity of the declaration.
	ID() DeclID

	// Name returns the qualified name used in diagnostics (e.g. "pkg.Impl").
	Name() string

	// Kind returns the declaration kind.
	Kind() Kind

	// HasTag reports whether the declaration currently carries tag.
	HasTag(tag Tag) bool

	// Annotation returns the annotation for tag, if the declaration carries it.
	Annotation(tag Tag) (Annotation, bool)

	// Enclosing returns the enclosing declaration, or nil for top-level
	// declarations.
	Enclosing() Declaration
}

// TaggedSet maps each tag to the declarations newly tagged with it in one pass.
// Order within a tag's slice is the host's discovery order.
type TaggedSet map[Tag][]Declaration

// Add records decl under tag.
func (s TaggedSet) Add(tag Tag, decl Declaration) {
	s[tag] = append(s[tag], decl)
}

// Len returns the total number of (tag, declaration) entries.
func (s TaggedSet) Len() int {
	n := 0
	for _, decls := range s {
		n += len(decls)
	}
	return n
}

// Tags returns the tags present in the set, sorted.
func (s TaggedSet) Tags() []Tag {
	tags := make([]Tag, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// TaggedSetOf groups decls by every tag in tags that they carry.
// Declarations carrying none of the tags are ignored.
func TaggedSetOf(tags []Tag, decls []Declaration) TaggedSet {
	set := TaggedSet{}
	for _, decl := range decls {
		for _, tag := range tags {
			if decl.HasTag(tag) {
				set.Add(tag, decl)
			}
		}
	}
	return set
}

// NameOf returns decl's name, or "null" when decl is nil.
func NameOf(decl Declaration) string {
	if decl == nil {
		return "null"
	}
	return decl.Name()
}

// Contains reports whether decls includes a declaration with the same ID as decl.
func Contains(decls []Declaration, decl Declaration) bool {
	if decl == nil {
		return false
	}
	id := decl.ID()
	for _, d := range decls {
		if d.ID() == id {
			return true
		}
	}
	return false
}

// SortByID sorts decls in place by ID.
func SortByID(decls []Declaration) {
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].ID() < decls[j].ID() })
}
