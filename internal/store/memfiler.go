package store

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemFiler is an in-memory Filer. Safe for concurrent use.
type MemFiler struct {
	mu      sync.Mutex
	files   map[CreatedFile][]byte
	created []CreatedFile
	writes  int
}

// NewMemFiler creates an empty in-memory filer.
func NewMemFiler() *MemFiler {
	return &MemFiler{files: make(map[CreatedFile][]byte)}
}

// Put seeds a resource without recording it as created.
func (m *MemFiler) Put(loc Location, name string, data []byte) error {
	cleaned, err := CleanPath(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[CreatedFile{Location: loc, Path: cleaned}] = append([]byte(nil), data...)
	return nil
}

// Get returns a resource's current content.
func (m *MemFiler) Get(loc Location, name string) ([]byte, bool) {
	cleaned, err := CleanPath(name)
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[CreatedFile{Location: loc, Path: cleaned}]
	return data, ok
}

// Writes returns the number of completed Create calls.
func (m *MemFiler) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Paths returns every stored resource under loc, sorted.
func (m *MemFiler) Paths(loc Location) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.files {
		if k.Location == loc {
			out = append(out, k.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Open implements Filer.
func (m *MemFiler) Open(loc Location, name string) (io.ReadCloser, error) {
	data, ok := m.Get(loc, name)
	if !ok {
		return nil, fmt.Errorf("open %s/%s: %w", loc, name, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create implements Filer.
func (m *MemFiler) Create(loc Location, name string) (Writer, error) {
	cleaned, err := CleanPath(name)
	if err != nil {
		return nil, err
	}
	return &memFile{filer: m, key: CreatedFile{Location: loc, Path: cleaned}}, nil
}

// Created implements Filer.
func (m *MemFiler) Created() []CreatedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CreatedFile, len(m.created))
	copy(out, m.created)
	return out
}

type memFile struct {
	filer  *MemFiler
	key    CreatedFile
	buf    bytes.Buffer
	closed bool
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("write %s/%s: file closed", f.key.Location, f.key.Path)
	}
	return f.buf.Write(p)
}

func (f *memFile) Abort() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.buf.Reset()
	return nil
}

func (f *memFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	m := f.filer
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.key] = append([]byte(nil), f.buf.Bytes()...)
	m.created = append(m.created, f.key)
	m.writes++
	return nil
}
