package store

//go:generate mockgen -destination=mocks/mock_filer.go -package=mocks -source=filer.go Filer

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Location names an output root a Filer manages.
type Location string

const (
	// SourceOutput holds generated source files. The host rescans files
	// created here in the next pass.
	SourceOutput Location = "SOURCE_OUTPUT"

	// ClassOutput holds resources packaged alongside compiled output, such
	// as META-INF/services auto-discovery files.
	ClassOutput Location = "CLASS_OUTPUT"
)

// ErrNotFound is returned by Filer.Open when the resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidPath is returned for absolute paths or paths escaping the location.
var ErrInvalidPath = errors.New("invalid resource path")

// CreatedFile identifies a resource created through a Filer.
type CreatedFile struct {
	Location Location
	Path     string
}

// Writer receives the content of a resource being created. Close commits
// the content, replacing any existing resource. Abort discards it and
// leaves the existing resource untouched. After either call, the other is a
// no-op.
type Writer interface {
	io.WriteCloser
	Abort() error
}

// Filer reads and writes resources under output locations.
//
// Paths are slash-separated and relative to the location root.
type Filer interface {
	// Open returns a reader for an existing resource. Returns an error
	// wrapping ErrNotFound when the resource is absent.
	Open(loc Location, name string) (io.ReadCloser, error)

	// Create returns a writer that replaces the resource on Close.
	Create(loc Location, name string) (Writer, error)

	// Created returns every resource created so far, in creation order.
	Created() []CreatedFile
}

// CleanPath validates name and returns its cleaned form.
func CleanPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return cleaned, nil
}

// CreatedSince returns the files in f.Created() after the first n.
func CreatedSince(f Filer, n int) []CreatedFile {
	all := f.Created()
	if n >= len(all) {
		return nil
	}
	return all[n:]
}
