package ir

import "sort"

// Decl is a mutable, host-owned Declaration implementation.
//
// Hosts that discover tags incrementally (a later pass may add a tag to a
// declaration seen earlier) call AddAnnotation between passes. The engine
// only reads through the Declaration interface.
type Decl struct {
	id          DeclID
	name        string
	kind        Kind
	enclosing   Declaration
	annotations map[Tag]Annotation
}

// NewDecl creates a declaration with no tags. name doubles as the ID when
// id is empty.
func NewDecl(id DeclID, name string, kind Kind) *Decl {
	if id == "" {
		id = DeclID(name)
	}
	return &Decl{
		id:          id,
		name:        name,
		kind:        kind,
		annotations: make(map[Tag]Annotation),
	}
}

// WithEnclosing sets the enclosing declaration and returns d.
func (d *Decl) WithEnclosing(enclosing Declaration) *Decl {
	d.enclosing = enclosing
	return d
}

// AddAnnotation attaches tag with optional attributes. Adding a tag that is
// already present replaces its attributes.
func (d *Decl) AddAnnotation(tag Tag, values map[string]string) *Decl {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	d.annotations[tag] = Annotation{Tag: tag, Values: copied}
	return d
}

// RemoveAnnotation detaches tag.
func (d *Decl) RemoveAnnotation(tag Tag) {
	delete(d.annotations, tag)
}

func (d *Decl) ID() DeclID            { return d.id }
func (d *Decl) Name() string          { return d.name }
func (d *Decl) Kind() Kind            { return d.kind }
func (d *Decl) Enclosing() Declaration { return d.enclosing }

func (d *Decl) HasTag(tag Tag) bool {
	_, ok := d.annotations[tag]
	return ok
}

func (d *Decl) Annotation(tag Tag) (Annotation, bool) {
	a, ok := d.annotations[tag]
	return a, ok
}

// Tags returns the tags currently attached to d, sorted.
func (d *Decl) Tags() []Tag {
	tags := make([]Tag, 0, len(d.annotations))
	for tag := range d.annotations {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// String returns the declaration name.
func (d *Decl) String() string {
	return d.name
}
