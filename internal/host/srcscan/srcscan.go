// Package srcscan discovers tagged declarations in Go source files.
//
// A declaration is tagged by one or more directive comments placed directly
// above it:
//
//	//turbine:AutoService type=svc.Greeter
//	type English struct{}
//
// Directives are recognized above type specs, functions, methods and
// interface methods. Declaration names are qualified by the package name:
// pkg.Name for top-level declarations and pkg.Type.Method for methods.
// Declaration IDs add the file's directory, dir/pkg.Name, so packages with
// the same name in different directories do not collide. Files directly in
// the working directory have IDs equal to their names.
package srcscan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/turbine/internal/ir"
)

// DirectivePrefix starts every tag directive comment.
const DirectivePrefix = "//turbine:"

// DefaultConcurrency bounds parallel file parsing.
const DefaultConcurrency = 8

// File is one source file to scan.
type File struct {
	Path   string
	Source []byte
}

// Scanner parses Go files with tree-sitter. A new tree-sitter parser is
// created per file, so a Scanner is safe for concurrent use.
type Scanner struct {
	language    *tree_sitter.Language
	concurrency int
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scanner for Go source.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		language:    tree_sitter.NewLanguage(tree_sitter_go.Language()),
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanSource returns the declarations of one file in source order, tagged or
// not. Methods whose receiver type is declared in the same file are enclosed
// by that type's declaration; otherwise by an untagged placeholder.
func (s *Scanner) ScanSource(path string, source []byte) ([]*ir.Decl, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, fmt.Errorf("set language go: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		s.logger.Debug("source has syntax errors", "path", path)
	}

	w := &walker{source: source, path: path, prefix: idPrefix(path), byID: map[ir.DeclID]*ir.Decl{}}
	w.pkg = packageName(root, source)
	if w.pkg == "" {
		return nil, fmt.Errorf("%s: missing package clause", path)
	}
	w.walkSiblings(root, w.topLevel)
	w.resolveReceivers(nil)
	return w.decls, nil
}

// ScanFiles scans files in parallel and returns every declaration sorted by
// ID. Method receivers are resolved across all files.
func (s *Scanner) ScanFiles(ctx context.Context, files []File) ([]*ir.Decl, error) {
	results := make([][]*ir.Decl, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decls, err := s.ScanSource(f.Path, f.Source)
			if err != nil {
				return fmt.Errorf("scan %s: %w", f.Path, err)
			}
			results[i] = decls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[ir.DeclID]*ir.Decl)
	var all []*ir.Decl
	for _, decls := range results {
		for _, d := range decls {
			if _, dup := byID[d.ID()]; dup {
				s.logger.Warn("ignoring duplicate declaration", "decl", string(d.ID()))
				continue
			}
			byID[d.ID()] = d
			all = append(all, d)
		}
	}
	w := &walker{decls: all}
	w.resolveReceivers(byID)

	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	s.logger.Debug("scanned sources", "files", len(files), "decls", len(all))
	return all, nil
}

// ScanDirs reads every non-test .go file under dirs and scans them.
func (s *Scanner) ScanDirs(ctx context.Context, dirs ...string) ([]*ir.Decl, error) {
	var files []File
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata") {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsGoSource(path) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, File{Path: path, Source: data})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	return s.ScanFiles(ctx, files)
}

// IsGoSource reports whether path names a non-test Go file.
func IsGoSource(path string) bool {
	return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
}

// ParseDirective parses one comment line. It reports false for comments that
// are not tag directives.
func ParseDirective(comment string) (ir.Annotation, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(comment), DirectivePrefix)
	if !ok {
		return ir.Annotation{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ir.Annotation{}, false
	}
	ann := ir.Annotation{Tag: ir.Tag(fields[0]), Values: map[string]string{}}
	for _, f := range fields[1:] {
		key, value, _ := strings.Cut(f, "=")
		if key == "" {
			continue
		}
		ann.Values[key] = strings.Trim(value, `"`)
	}
	return ann, true
}

// idPrefix returns the ID prefix for declarations in the file at path.
func idPrefix(path string) string {
	dir := filepath.ToSlash(filepath.Clean(filepath.Dir(path)))
	if dir == "." {
		return ""
	}
	return dir + "/"
}

func packageName(root *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() != "package_clause" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			id := child.NamedChild(j)
			if id != nil && id.Kind() == "package_identifier" {
				return id.Utf8Text(source)
			}
		}
	}
	return ""
}

// walker collects declarations from one parse tree.
type walker struct {
	source []byte
	path   string
	prefix string
	pkg    string
	decls  []*ir.Decl
	byID   map[ir.DeclID]*ir.Decl

	// receivers maps a method ID to its receiver type ID.
	receivers map[ir.DeclID]ir.DeclID
}

// walkSiblings visits the named children of parent, handing each
// non-comment node the directives written on the lines directly above it.
func (w *walker) walkSiblings(parent *tree_sitter.Node, visit func(node *tree_sitter.Node, anns []ir.Annotation)) {
	var pending []ir.Annotation
	var lastRow uint
	haveComment := false

	for i := uint(0); i < parent.NamedChildCount(); i++ {
		node := parent.NamedChild(i)
		if node == nil {
			continue
		}
		start := node.StartPosition().Row

		if node.Kind() == "comment" {
			if haveComment && start != lastRow+1 {
				pending = nil
			}
			if ann, ok := ParseDirective(node.Utf8Text(w.source)); ok {
				pending = append(pending, ann)
			}
			lastRow = node.EndPosition().Row
			haveComment = true
			continue
		}

		var anns []ir.Annotation
		if haveComment && start == lastRow+1 {
			anns = pending
		}
		visit(node, anns)
		pending = nil
		haveComment = false
	}
}

func (w *walker) topLevel(node *tree_sitter.Node, anns []ir.Annotation) {
	switch node.Kind() {
	case "function_declaration":
		if name := w.fieldText(node, "name"); name != "" {
			w.add(w.pkg+"."+name, ir.KindFunction, anns, nil)
		}

	case "method_declaration":
		name := w.fieldText(node, "name")
		recv := receiverType(node.ChildByFieldName("receiver"), w.source)
		if name == "" || recv == "" {
			return
		}
		typeName := w.pkg + "." + recv
		m := w.add(typeName+"."+name, ir.KindMethod, anns, nil)
		if w.receivers == nil {
			w.receivers = map[ir.DeclID]ir.DeclID{}
		}
		w.receivers[m.ID()] = ir.DeclID(w.prefix + typeName)

	case "type_declaration":
		specs := 0
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if c := node.NamedChild(i); c != nil && c.Kind() == "type_spec" {
				specs++
			}
		}
		// A directive above "type (" applies to a lone spec only.
		w.walkSiblings(node, func(spec *tree_sitter.Node, inner []ir.Annotation) {
			if spec.Kind() != "type_spec" {
				return
			}
			if specs == 1 {
				inner = append(append([]ir.Annotation(nil), anns...), inner...)
			}
			w.typeSpec(spec, inner)
		})
	}
}

func (w *walker) typeSpec(node *tree_sitter.Node, anns []ir.Annotation) {
	name := w.fieldText(node, "name")
	if name == "" {
		return
	}
	qualified := w.pkg + "." + name
	typeNode := node.ChildByFieldName("type")

	kind := ir.KindType
	if typeNode != nil && typeNode.Kind() == "interface_type" {
		kind = ir.KindInterface
	}
	owner := w.add(qualified, kind, anns, nil)

	if kind != ir.KindInterface {
		return
	}
	w.walkSiblings(typeNode, func(elem *tree_sitter.Node, inner []ir.Annotation) {
		if elem.Kind() != "method_elem" && elem.Kind() != "method_spec" {
			return
		}
		if m := w.fieldText(elem, "name"); m != "" {
			w.add(qualified+"."+m, ir.KindMethod, inner, owner)
		}
	})
}

// add records a declaration named name, identified by name under the
// file's directory prefix.
func (w *walker) add(name string, kind ir.Kind, anns []ir.Annotation, enclosing ir.Declaration) *ir.Decl {
	id := ir.DeclID(w.prefix + name)
	d := ir.NewDecl(id, name, kind)
	if enclosing != nil {
		d.WithEnclosing(enclosing)
	}
	for _, ann := range anns {
		d.AddAnnotation(ann.Tag, ann.Values)
	}
	w.decls = append(w.decls, d)
	w.byID[id] = d
	return d
}

// resolveReceivers encloses methods by their receiver type. Types missing
// from byID get an untagged placeholder.
func (w *walker) resolveReceivers(byID map[ir.DeclID]*ir.Decl) {
	if byID == nil {
		byID = w.byID
	}
	for _, d := range w.decls {
		if d.Kind() != ir.KindMethod {
			continue
		}
		typeID, ok := w.receivers[d.ID()]
		if !ok {
			enc := d.Enclosing()
			if enc == nil || enc.Kind() == ir.KindInterface {
				continue
			}
			typeID = enc.ID()
		}
		if owner, ok := byID[typeID]; ok {
			d.WithEnclosing(owner)
			continue
		}
		if d.Enclosing() == nil {
			name := string(typeID)
			if i := strings.LastIndexByte(name, '/'); i >= 0 {
				name = name[i+1:]
			}
			d.WithEnclosing(ir.NewDecl(typeID, name, ir.KindType))
		}
	}
}

func (w *walker) fieldText(node *tree_sitter.Node, field string) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Utf8Text(w.source)
}

// receiverType returns the base type name of a method receiver list such as
// "(s *Server)" or "(l List[T])".
func receiverType(params *tree_sitter.Node, source []byte) string {
	if params == nil {
		return ""
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p == nil || p.Kind() != "parameter_declaration" {
			continue
		}
		t := p.ChildByFieldName("type")
		if t == nil {
			return ""
		}
		name := strings.TrimLeft(t.Utf8Text(source), "*")
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		return strings.TrimSpace(name)
	}
	return ""
}
