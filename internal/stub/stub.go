// Package stub implements a generator that writes an empty implementation
// type for each tagged interface or type into the source output.
//
// The generated stub for api.API is api.APIStub. When the run has an
// autoservice tag, stubs of interfaces carry that directive so the next
// pass registers them as service implementations. A stub may embed the
// stub of another declaration of the same package through the embeds
// attribute; it is deferred until that stub has been generated.
package stub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/store"
)

// Name is the registration name of the generator.
const Name = "stub"

// EmbedsAttr names the declaration whose stub is embedded.
const EmbedsAttr = "embeds"

// Marker opens every generated file.
const Marker = "// Code generated by turbine stub; DO NOT EDIT."

// Generator writes one stub file per tagged declaration.
type Generator struct {
	generator.Base
	tag        ir.Tag
	serviceTag ir.Tag

	// written maps generated file paths to the stub they hold.
	written map[string]string
	// stubs holds the declaration names whose stub exists.
	stubs map[string]bool
}

var _ generator.Single = (*Generator)(nil)

// New creates a generator for tag. A non-empty serviceTag is written as a
// directive on stubs of interfaces.
func New(tag, serviceTag ir.Tag) *Generator {
	return &Generator{
		Base:       generator.Base{ID: Name, Tags: []ir.Tag{tag}},
		tag:        tag,
		serviceTag: serviceTag,
		written:    make(map[string]string),
		stubs:      make(map[string]bool),
	}
}

// Factory returns a registry factory for tag.
func Factory(tag, serviceTag ir.Tag) generator.Factory {
	return func(*generator.Env) (generator.Generator, error) {
		if tag == "" {
			return nil, errors.New("stub: tag is required")
		}
		return generator.Adapt(New(tag, serviceTag)), nil
	}
}

// ProcessOne writes the stub for decl.
func (g *Generator) ProcessOne(_ context.Context, pass *generator.Pass, decl ir.Declaration) error {
	if k := decl.Kind(); k != ir.KindType && k != ir.KindInterface {
		return g.extraction(decl, fmt.Sprintf("@%s applies to types, not %ss", g.tag, k))
	}
	pkg, typ, ok := splitName(decl.Name())
	if !ok {
		return g.extraction(decl, "declaration name has no package")
	}

	var embedded string
	if ann, ok := decl.Annotation(g.tag); ok {
		if v, ok := ann.Value(EmbedsAttr); ok {
			base := strings.TrimSpace(v)
			basePkg, baseTyp, ok := splitName(base)
			switch {
			case !ok || basePkg != pkg:
				return g.extraction(decl, fmt.Sprintf("%s value %q must name a type in package %s", EmbedsAttr, base, pkg))
			case base == decl.Name():
				return g.extraction(decl, fmt.Sprintf("%s must not name the declaration itself", EmbedsAttr))
			case !g.stubs[base]:
				return deferral.New(fmt.Sprintf("stub for %s has not been generated", base))
			}
			embedded = baseTyp + "Stub"
		}
	}

	file := pkg + "/" + strings.ToLower(typ) + "_stub.go"
	name := typ + "Stub"
	if prev, ok := g.written[file]; ok {
		if prev != name {
			return g.extraction(decl, fmt.Sprintf("%s already holds %s", file, prev))
		}
		pass.Logger.Debug("stub already generated", "file", file)
		g.stubs[decl.Name()] = true
		return nil
	}

	if err := write(pass.Filer, file, g.render(decl, pkg, name, embedded)); err != nil {
		return err
	}
	g.written[file] = name
	g.stubs[decl.Name()] = true
	pass.Logger.Debug("generated stub", "file", file, "stub", pkg+"."+name)
	return nil
}

// render returns gofmt-shaped source. go/format would rewrite the
// directive line as a plain doc comment.
func (g *Generator) render(decl ir.Declaration, pkg, name, embedded string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\npackage %s\n\n", Marker, pkg)
	fmt.Fprintf(&buf, "// %s is a generated implementation of %s.\n", name, decl.Name())
	if g.serviceTag != "" && decl.Kind() == ir.KindInterface {
		fmt.Fprintf(&buf, "//turbine:%s type=%s\n", g.serviceTag, decl.Name())
	}
	if embedded == "" {
		fmt.Fprintf(&buf, "type %s struct{}\n", name)
	} else {
		fmt.Fprintf(&buf, "type %s struct {\n\t%s\n}\n", name, embedded)
	}
	return buf.Bytes()
}

func write(f store.Filer, file string, src []byte) error {
	w, err := f.Create(store.SourceOutput, file)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	if _, err := w.Write(src); err != nil {
		return errors.Join(fmt.Errorf("write %s: %w", file, err), w.Abort())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file, err)
	}
	return nil
}

func (g *Generator) extraction(decl ir.Declaration, msg string) error {
	return deferral.MarkFatal(&generator.ExtractionError{Decl: decl.Name(), Message: msg})
}

// splitName splits "pkg.Type" into its package and type name.
func splitName(name string) (pkg, typ string, ok bool) {
	pkg, typ, ok = strings.Cut(name, ".")
	if !ok || pkg == "" || typ == "" || strings.Contains(typ, ".") {
		return "", "", false
	}
	return pkg, typ, true
}
