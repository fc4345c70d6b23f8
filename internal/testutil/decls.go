package testutil

import (
	"strings"

	"github.com/roach88/turbine/internal/ir"
)

// Type returns a type declaration named name carrying the given tags.
func Type(name string, tags ...ir.Tag) *ir.Decl {
	d := ir.NewDecl(ir.DeclID(name), name, ir.KindType)
	for _, tag := range tags {
		d.AddAnnotation(tag, nil)
	}
	return d
}

// Method returns a method declaration enclosed by owner.
func Method(owner ir.Declaration, name string, tags ...ir.Tag) *ir.Decl {
	qualified := owner.Name() + "." + name
	d := ir.NewDecl(ir.DeclID(qualified), qualified, ir.KindMethod).WithEnclosing(owner)
	for _, tag := range tags {
		d.AddAnnotation(tag, nil)
	}
	return d
}

// Service returns a type declaration tagged with tag and type=service, the
// shape the autoservice generator consumes.
func Service(name string, tag ir.Tag, service string) *ir.Decl {
	return ir.NewDecl(ir.DeclID(name), name, ir.KindType).
		AddAnnotation(tag, map[string]string{"type": service})
}

// Tagged builds a TaggedSet from decls, grouping each under every tag it
// carries among tags.
func Tagged(tags []ir.Tag, decls ...ir.Declaration) ir.TaggedSet {
	return ir.TaggedSetOf(tags, decls)
}

// IDs returns the declaration IDs of decls as strings, in order.
func IDs(decls []ir.Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = string(d.ID())
	}
	return out
}

// Lines splits newline-terminated content into lines.
func Lines(data []byte) []string {
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
