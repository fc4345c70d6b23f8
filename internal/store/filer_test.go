package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeResource(t *testing.T, f Filer, loc Location, name, content string) {
	t.Helper()
	w, err := f.Create(loc, name)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readResource(t *testing.T, f Filer, loc Location, name string) string {
	t.Helper()
	r, err := f.Open(loc, name)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"META-INF/services/svc.Foo", "META-INF/services/svc.Foo", false},
		{"a/./b", "a/b", false},
		{"a/../b", "b", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../escape", "", true},
		{"a/../../escape", "", true},
		{".", "", true},
		{`a\b`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFilers tests the Filer contract against both implementations.
func TestFilers(t *testing.T) {
	filers := map[string]func(t *testing.T) Filer{
		"mem": func(t *testing.T) Filer { return NewMemFiler() },
		"dir": func(t *testing.T) Filer { return NewDirFilerAt(t.TempDir()) },
	}

	for name, newFiler := range filers {
		t.Run(name+"/missing resource is ErrNotFound", func(t *testing.T) {
			f := newFiler(t)
			_, err := f.Open(ClassOutput, "META-INF/services/svc.Foo")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run(name+"/create then open", func(t *testing.T) {
			f := newFiler(t)
			writeResource(t, f, ClassOutput, "META-INF/services/svc.Foo", "pkg.Impl1\n")
			assert.Equal(t, "pkg.Impl1\n", readResource(t, f, ClassOutput, "META-INF/services/svc.Foo"))

			_, err := f.Open(SourceOutput, "META-INF/services/svc.Foo")
			assert.ErrorIs(t, err, ErrNotFound, "locations are independent")
		})

		t.Run(name+"/create replaces content", func(t *testing.T) {
			f := newFiler(t)
			writeResource(t, f, SourceOutput, "gen/a.go", "one")
			writeResource(t, f, SourceOutput, "gen/a.go", "two")
			assert.Equal(t, "two", readResource(t, f, SourceOutput, "gen/a.go"))
		})

		t.Run(name+"/created records order", func(t *testing.T) {
			f := newFiler(t)
			writeResource(t, f, SourceOutput, "b.go", "")
			writeResource(t, f, ClassOutput, "a.txt", "")

			assert.Equal(t, []CreatedFile{
				{Location: SourceOutput, Path: "b.go"},
				{Location: ClassOutput, Path: "a.txt"},
			}, f.Created())
			assert.Equal(t, []CreatedFile{{Location: ClassOutput, Path: "a.txt"}}, CreatedSince(f, 1))
			assert.Empty(t, CreatedSince(f, 2))
		})

		t.Run(name+"/unclosed writer is not visible", func(t *testing.T) {
			f := newFiler(t)
			w, err := f.Create(ClassOutput, "x")
			require.NoError(t, err)
			_, err = io.WriteString(w, "partial")
			require.NoError(t, err)

			_, err = f.Open(ClassOutput, "x")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Empty(t, f.Created())
			require.NoError(t, w.Close())
		})

		t.Run(name+"/abort keeps existing content", func(t *testing.T) {
			f := newFiler(t)
			writeResource(t, f, ClassOutput, "META-INF/services/svc.Foo", "pkg.Impl1\n")

			w, err := f.Create(ClassOutput, "META-INF/services/svc.Foo")
			require.NoError(t, err)
			_, err = io.WriteString(w, "pkg.I")
			require.NoError(t, err)
			require.NoError(t, w.Abort())
			require.NoError(t, w.Close(), "close after abort is a no-op")

			assert.Equal(t, "pkg.Impl1\n", readResource(t, f, ClassOutput, "META-INF/services/svc.Foo"))
			assert.Len(t, f.Created(), 1)
		})

		t.Run(name+"/invalid path", func(t *testing.T) {
			f := newFiler(t)
			_, err := f.Create(ClassOutput, "../x")
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestDirFilerWritesUnderRoots(t *testing.T) {
	src := t.TempDir()
	cls := t.TempDir()
	f := NewDirFiler(src, cls)

	writeResource(t, f, ClassOutput, "META-INF/services/svc.Foo", "pkg.Impl\n")

	data, err := os.ReadFile(filepath.Join(cls, "META-INF", "services", "svc.Foo"))
	require.NoError(t, err)
	assert.Equal(t, "pkg.Impl\n", string(data))

	entries, err := os.ReadDir(filepath.Join(cls, "META-INF", "services"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is renamed away")

	w, err := f.Create(ClassOutput, "META-INF/services/svc.Foo")
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	entries, err = os.ReadDir(filepath.Join(cls, "META-INF", "services"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "aborted temporary file is removed")

	_, err = f.Path("BOGUS", "x")
	assert.Error(t, err)
}

func TestMemFilerSeedAndInspect(t *testing.T) {
	m := NewMemFiler()
	require.NoError(t, m.Put(ClassOutput, "META-INF/services/svc.Foo", []byte("pkg.Old\n")))

	assert.Equal(t, "pkg.Old\n", readResource(t, m, ClassOutput, "META-INF/services/svc.Foo"))
	assert.Empty(t, m.Created(), "seeding is not creation")
	assert.Equal(t, 0, m.Writes())

	writeResource(t, m, ClassOutput, "META-INF/services/svc.Bar", "x\n")
	assert.Equal(t, 1, m.Writes())
	assert.Equal(t, []string{"META-INF/services/svc.Bar", "META-INF/services/svc.Foo"}, m.Paths(ClassOutput))

	data, ok := m.Get(ClassOutput, "META-INF/services/svc.Bar")
	require.True(t, ok)
	assert.Equal(t, "x\n", string(data))
}
