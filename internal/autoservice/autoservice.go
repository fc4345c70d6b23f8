// Package autoservice implements the built-in generator that collects
// tagged implementations per service type and maintains one
// META-INF/services auto-discovery file per type.
//
// Observed members accumulate across passes. At Finalize each group is
// merged with the file already present in the class output, so an
// incremental build that sees only part of the program keeps the entries it
// did not re-observe. Unchanged files are not rewritten.
package autoservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/store"
)

// Name is the registration name of the generator.
const Name = "autoservice"

// ResourceDir is the class-output directory holding auto-discovery files.
const ResourceDir = "META-INF/services/"

// TypeAttr is the annotation attribute naming the service type.
const TypeAttr = "type"

// Generator accumulates (service type, implementation) pairs.
type Generator struct {
	tag    ir.Tag
	groups map[string]map[string]struct{}
}

var _ generator.Generator = (*Generator)(nil)

// New creates a generator for tag.
func New(tag ir.Tag) *Generator {
	return &Generator{
		tag:    tag,
		groups: make(map[string]map[string]struct{}),
	}
}

// Factory returns a registry factory for tag.
func Factory(tag ir.Tag) generator.Factory {
	return func(*generator.Env) (generator.Generator, error) {
		if tag == "" {
			return nil, errors.New("autoservice: tag is required")
		}
		return New(tag), nil
	}
}

// Name implements generator.Generator.
func (g *Generator) Name() string { return Name }

// SupportedTags implements generator.Generator.
func (g *Generator) SupportedTags() []ir.Tag { return []ir.Tag{g.tag} }

// Process records every declaration under its service type. It never
// defers; a declaration without a type attribute is fatal.
func (g *Generator) Process(_ context.Context, pass *generator.Pass, batch []ir.Declaration) deferral.Outcome {
	if len(batch) == 0 {
		if pass.Options.Debug {
			report(pass.Messager, fmt.Sprintf("saw no new declarations tagged with @%s", g.tag))
		}
		return deferral.OK()
	}

	report(pass.Messager, fmt.Sprintf("saw %d new declarations tagged with @%s", len(batch), g.tag))

	for _, decl := range batch {
		key, err := g.serviceType(decl)
		if err != nil {
			return deferral.Fatal(err)
		}
		g.add(key, decl.Name())
		pass.Logger.Debug("recorded service implementation", "type", key, "decl", decl.Name())
	}
	return deferral.OK()
}

func (g *Generator) serviceType(decl ir.Declaration) (string, error) {
	ann, ok := decl.Annotation(g.tag)
	if ok {
		if v, ok := ann.Value(TypeAttr); ok && strings.TrimSpace(v) != "" {
			key := strings.TrimSpace(v)
			if !validServiceType(key) {
				return "", &generator.ExtractionError{
					Decl:    decl.Name(),
					Message: fmt.Sprintf("invalid %s value %q for @%s", TypeAttr, key, g.tag),
				}
			}
			return key, nil
		}
	}
	return "", &generator.ExtractionError{
		Decl:    decl.Name(),
		Message: fmt.Sprintf("could not find %s value for @%s", TypeAttr, g.tag),
	}
}

// add records member under key. Members are trimmed and NFC-normalized
// the same way lines read back from a services file are.
func (g *Generator) add(key, member string) {
	member = normalizeLine(member)
	if member == "" {
		return
	}
	members, ok := g.groups[key]
	if !ok {
		members = make(map[string]struct{})
		g.groups[key] = members
	}
	members[member] = struct{}{}
}

// Groups returns the accumulated service types, sorted.
func (g *Generator) Groups() []string {
	keys := make([]string, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Members returns the implementations observed for key, sorted.
func (g *Generator) Members(key string) []string {
	members := g.groups[key]
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Finalize merges every group with its existing auto-discovery file and
// writes the files whose content changed. The first read or write failure
// is returned.
func (g *Generator) Finalize(_ context.Context, env *generator.Env) error {
	if len(g.groups) == 0 {
		return nil
	}
	if env.Filer == nil {
		return errors.New("autoservice: no filer configured")
	}

	for _, key := range g.Groups() {
		observed := g.Members(key)
		if len(observed) == 0 {
			continue
		}
		written, merged, err := mergeGroup(env.Filer, key, observed)
		if err != nil {
			return fmt.Errorf("writing auto-discovery file for type %s: %w", key, err)
		}
		if !written {
			if env.Logger != nil {
				env.Logger.Debug("auto-discovery file unchanged", "type", key, "services", len(merged))
			}
			continue
		}
		report(env.Messager, fmt.Sprintf("wrote auto-discovery file with %d services for type %s", len(merged), key))
	}
	return nil
}

// validServiceType reports whether key names a single file directly under
// ResourceDir.
func validServiceType(key string) bool {
	return key != "." && !strings.Contains(key, "..") && !strings.ContainsAny(key, "/\\")
}

// ResourcePath returns the class-output path for a service type.
func ResourcePath(key string) string {
	return ResourceDir + key
}

func mergeGroup(f store.Filer, key string, observed []string) (bool, []string, error) {
	existing, err := ReadServices(f, ResourcePath(key))
	if err != nil {
		return false, nil, err
	}

	merged := Merge(existing, observed)
	if slices.Equal(merged, existing) {
		return false, merged, nil
	}
	if err := WriteServices(f, ResourcePath(key), merged); err != nil {
		return false, nil, err
	}
	return true, merged, nil
}

// Merge returns the sorted, de-duplicated union of a and b.
func Merge(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ReadServices reads an auto-discovery file from the class output. A missing
// file is an empty set. Lines are trimmed and NFC-normalized; blank lines
// are dropped. The result is sorted and de-duplicated.
func ReadServices(f store.Filer, name string) ([]string, error) {
	rc, err := f.Open(store.ClassOutput, name)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseServices(rc)
}

// ParseServices parses auto-discovery file content.
func ParseServices(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := normalizeLine(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}
	return Merge(lines, nil), nil
}

// WriteServices replaces an auto-discovery file with one identifier per
// line, each terminated by a newline. On a write failure the existing file
// is left as it was.
func WriteServices(f store.Filer, name string, services []string) error {
	w, err := f.Create(store.ClassOutput, name)
	if err != nil {
		return err
	}
	// bufio errors are sticky; Flush reports the first one.
	bw := bufio.NewWriter(w)
	for _, s := range services {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			return errors.Join(err, abortErr)
		}
		return err
	}
	return w.Close()
}

func normalizeLine(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func report(m diag.Messager, msg string) {
	if m == nil {
		return
	}
	m.Report(diag.Diagnostic{Kind: diag.KindNote, Message: msg, Generator: Name})
}
