package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DirFiler is a Filer backed by directories on disk.
type DirFiler struct {
	roots map[Location]string

	mu      sync.Mutex
	created []CreatedFile
}

// NewDirFiler creates a filer writing SourceOutput under sourceDir and
// ClassOutput under classDir.
func NewDirFiler(sourceDir, classDir string) *DirFiler {
	return &DirFiler{
		roots: map[Location]string{
			SourceOutput: sourceDir,
			ClassOutput:  classDir,
		},
	}
}

// NewDirFilerAt creates a filer with both locations under root, using the
// location names as subdirectories.
func NewDirFilerAt(root string) *DirFiler {
	return NewDirFiler(
		filepath.Join(root, string(SourceOutput)),
		filepath.Join(root, string(ClassOutput)),
	)
}

// Path returns the on-disk path for name under loc.
func (f *DirFiler) Path(loc Location, name string) (string, error) {
	root, ok := f.roots[loc]
	if !ok {
		return "", fmt.Errorf("unknown location %q", loc)
	}
	cleaned, err := CleanPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}

// Open implements Filer.
func (f *DirFiler) Open(loc Location, name string) (io.ReadCloser, error) {
	p, err := f.Path(loc, name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s/%s: %w", loc, name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s/%s: %w", loc, name, err)
	}
	return file, nil
}

// Create implements Filer. The content is written to a temporary file in
// the same directory, renamed into place on Close and removed on Abort.
func (f *DirFiler) Create(loc Location, name string) (Writer, error) {
	p, err := f.Path(loc, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", loc, name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".turbine-*")
	if err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", loc, name, err)
	}

	cleaned, _ := CleanPath(name)
	return &atomicFile{
		tmp:  tmp,
		dest: p,
		done: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.created = append(f.created, CreatedFile{Location: loc, Path: cleaned})
		},
	}, nil
}

// Created implements Filer.
func (f *DirFiler) Created() []CreatedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CreatedFile, len(f.created))
	copy(out, f.created)
	return out
}

type atomicFile struct {
	tmp    *os.File
	dest   string
	done   func()
	closed bool
}

func (a *atomicFile) Write(p []byte) (int, error) {
	if a.closed {
		return 0, fmt.Errorf("write %s: file closed", a.dest)
	}
	return a.tmp.Write(p)
}

func (a *atomicFile) Abort() error {
	if a.closed {
		return nil
	}
	a.closed = true

	a.tmp.Close()
	if err := os.Remove(a.tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", a.dest, err)
	}
	return nil
}

func (a *atomicFile) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if err := a.tmp.Close(); err != nil {
		os.Remove(a.tmp.Name())
		return fmt.Errorf("close %s: %w", a.dest, err)
	}
	if err := os.Rename(a.tmp.Name(), a.dest); err != nil {
		os.Remove(a.tmp.Name())
		return fmt.Errorf("rename %s: %w", a.dest, err)
	}
	a.done()
	return nil
}
