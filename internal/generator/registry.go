package generator

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("generator already registered")

// Factory constructs a generator. Invoked exactly once per run.
type Factory func(env *Env) (Generator, error)

// Of returns a Factory that always yields g.
func Of(g Generator) Factory {
	return func(*Env) (Generator, error) { return g, nil }
}

// Registry holds generator factories in registration order. Registration
// order is dispatch, promotion and finalize order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Factory{}}
}

// Register installs a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("generator: name is required")
	}
	if factory == nil {
		return fmt.Errorf("generator: factory is required for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("generator %s: %w", name, ErrDuplicate)
	}
	r.entries[name] = factory
	r.names = append(r.names, name)
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Named pairs a registration name with its instance.
type Named struct {
	Name      string
	Generator Generator
}

// Instantiate invokes every factory once, in registration order.
func (r *Registry) Instantiate(env *Env) ([]Named, error) {
	r.mu.RLock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	factories := make([]Factory, len(names))
	for i, name := range names {
		factories[i] = r.entries[name]
	}
	r.mu.RUnlock()

	out := make([]Named, 0, len(names))
	for i, name := range names {
		g, err := factories[i](env)
		if err != nil {
			return nil, fmt.Errorf("instantiate generator %s: %w", name, err)
		}
		if g == nil {
			return nil, fmt.Errorf("instantiate generator %s: factory returned nil", name)
		}
		out = append(out, Named{Name: name, Generator: g})
	}
	return out, nil
}
