package srcscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turbine/internal/ir"
)

const greeter = `package greet

// Greeter says hello.
type Greeter interface {
	//turbine:Route path=/hello
	Hello(name string) string
	Bye()
}

//turbine:AutoService type=greet.Greeter
//turbine:Builder
type English struct{}

// Hello is not a directive.
func (e *English) Hello(name string) string { return "hello " + name }

//turbine:Handler
func (e English) Bye() {}

//turbine:Builder

type Detached struct{}

type (
	//turbine:AutoService type=greet.Greeter
	French struct{}
	German struct{}
)

//turbine:Main verbose
func Main() {}
`

func byID(decls []*ir.Decl) map[ir.DeclID]*ir.Decl {
	out := make(map[ir.DeclID]*ir.Decl, len(decls))
	for _, d := range decls {
		out[d.ID()] = d
	}
	return out
}

func TestParseDirective(t *testing.T) {
	ann, ok := ParseDirective(`//turbine:AutoService type=svc.Foo note="x"`)
	require.True(t, ok)
	assert.Equal(t, ir.Tag("AutoService"), ann.Tag)
	assert.Equal(t, map[string]string{"type": "svc.Foo", "note": "x"}, ann.Values)

	ann, ok = ParseDirective("//turbine:Main verbose")
	require.True(t, ok)
	v, present := ann.Value("verbose")
	assert.True(t, present)
	assert.Equal(t, "", v)

	for _, c := range []string{"// turbine:X", "//turbine:", "// plain comment", "/* block */"} {
		_, ok := ParseDirective(c)
		assert.False(t, ok, c)
	}
}

func TestScanSource(t *testing.T) {
	decls, err := New().ScanSource("greet.go", []byte(greeter))
	require.NoError(t, err)
	got := byID(decls)

	english := got["greet.English"]
	require.NotNil(t, english)
	assert.Equal(t, ir.KindType, english.Kind())
	assert.Equal(t, []ir.Tag{"AutoService", "Builder"}, english.Tags())
	ann, _ := english.Annotation("AutoService")
	v, _ := ann.Value("type")
	assert.Equal(t, "greet.Greeter", v)

	iface := got["greet.Greeter"]
	require.NotNil(t, iface)
	assert.Equal(t, ir.KindInterface, iface.Kind())
	assert.Empty(t, iface.Tags())

	hello := got["greet.Greeter.Hello"]
	require.NotNil(t, hello)
	assert.Equal(t, ir.KindMethod, hello.Kind())
	assert.True(t, hello.HasTag("Route"))
	assert.Equal(t, ir.DeclID("greet.Greeter"), hello.Enclosing().ID())
	assert.Empty(t, got["greet.Greeter.Bye"].Tags())

	bye := got["greet.English.Bye"]
	require.NotNil(t, bye)
	assert.True(t, bye.HasTag("Handler"))
	assert.Same(t, english, bye.Enclosing())
	assert.Same(t, english, got["greet.English.Hello"].Enclosing())
	assert.Empty(t, got["greet.English.Hello"].Tags())

	// A blank line detaches the directive.
	assert.Empty(t, got["greet.Detached"].Tags())

	assert.True(t, got["greet.French"].HasTag("AutoService"))
	assert.Empty(t, got["greet.German"].Tags())

	assert.Equal(t, ir.KindFunction, got["greet.Main"].Kind())
	assert.True(t, got["greet.Main"].HasTag("Main"))
}

func TestScanSourceRequiresPackage(t *testing.T) {
	_, err := New().ScanSource("bad.go", []byte("type X struct{}\n"))
	assert.Error(t, err)
}

func TestScanFilesResolvesReceiversAcrossFiles(t *testing.T) {
	files := []File{
		{Path: "b.go", Source: []byte("package p\n\n//turbine:Gen\nfunc (s *Server) Start() {}\n")},
		{Path: "a.go", Source: []byte("package p\n\n//turbine:Gen\ntype Server struct{}\n")},
	}

	decls, err := New(WithConcurrency(2)).ScanFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	assert.Equal(t, ir.DeclID("p.Server"), decls[0].ID())
	assert.Equal(t, ir.DeclID("p.Server.Start"), decls[1].ID())
	assert.Same(t, decls[0], decls[1].Enclosing())
}

func TestScanFilesPlaceholderReceiver(t *testing.T) {
	files := []File{{Path: "m.go", Source: []byte("package p\n\n//turbine:Gen\nfunc (l List[T]) Len() int { return 0 }\n")}}

	decls, err := New().ScanFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, decls, 1)

	enc := decls[0].Enclosing()
	require.NotNil(t, enc)
	assert.Equal(t, ir.DeclID("p.List"), enc.ID())
	assert.False(t, enc.HasTag("Gen"))
}

func TestScanDirsSkipsTestsAndTestdata(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("svc/impl.go", "package svc\n\n//turbine:AutoService type=svc.API\ntype Impl struct{}\n")
	write("svc/impl_test.go", "package svc\n\n//turbine:AutoService type=svc.API\ntype Fake struct{}\n")
	write("svc/testdata/x.go", "package x\n\n//turbine:AutoService type=svc.API\ntype X struct{}\n")

	decls, err := New().ScanDirs(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "svc.Impl", decls[0].Name())
	assert.Equal(t, ir.DeclID(filepath.ToSlash(filepath.Join(dir, "svc"))+"/svc.Impl"), decls[0].ID())
}

func TestScanDirsKeepsSamePackageNameInDifferentDirs(t *testing.T) {
	root := t.TempDir()
	for dir, svc := range map[string]string{"a/impl": "greet.Greeter", "b/impl": "farewell.Leaver"} {
		path := filepath.Join(root, dir, "english.go")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path,
			[]byte("package impl\n\n//turbine:AutoService type="+svc+"\ntype English struct{}\n"), 0o644))
	}

	decls, err := New().ScanDirs(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	types := map[string]string{}
	for _, d := range decls {
		assert.Equal(t, "impl.English", d.Name())
		ann, ok := d.Annotation("AutoService")
		require.True(t, ok)
		v, _ := ann.Value("type")
		types[v] = string(d.ID())
	}
	assert.Len(t, types, 2)
	assert.NotEqual(t, decls[0].ID(), decls[1].ID())
}

func TestScanFilesQualifiesIDsByDirectory(t *testing.T) {
	files := []File{
		{Path: "gen/server.go", Source: []byte("package p\n\n//turbine:Gen\ntype Server struct{}\n")},
		{Path: "gen/start.go", Source: []byte("package p\n\n//turbine:Gen\nfunc (s *Server) Start() {}\n")},
		{Path: "gen/list.go", Source: []byte("package p\n\n//turbine:Gen\nfunc (l List) Len() int { return 0 }\n")},
	}

	decls, err := New().ScanFiles(context.Background(), files)
	require.NoError(t, err)
	got := byID(decls)

	server := got["gen/p.Server"]
	require.NotNil(t, server)
	assert.Equal(t, "p.Server", server.Name())

	start := got["gen/p.Server.Start"]
	require.NotNil(t, start)
	assert.Equal(t, "p.Server.Start", start.Name())
	assert.Same(t, server, start.Enclosing())

	length := got["gen/p.List.Len"]
	require.NotNil(t, length)
	assert.Equal(t, ir.DeclID("gen/p.List"), length.Enclosing().ID())
	assert.Equal(t, "p.List", length.Enclosing().Name())
}
