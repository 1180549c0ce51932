package search

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds adapters in registration order. The order is the result
// order of every search.
type Registry struct {
	mu sync.RWMutex

	// adapters stores registered adapters in insertion order.
	adapters []Adapter

	byName map[string]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Adapter)}
}

// Register appends an adapter. Names must be unique.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[a.Name()]; ok {
		return fmt.Errorf("adapter %q already registered", a.Name())
	}
	r.adapters = append(r.adapters, a)
	r.byName[a.Name()] = a

	slog.Debug("registered content source", "source", a.Name(), "position", len(r.adapters))
	return nil
}

// Adapters returns a snapshot of the registered adapters in order.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Names returns the adapter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Get returns the adapter with the given name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byName[name]
	return a, ok
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// NewDefaultRegistry registers an adapter for every source in
// DefaultSources, skipping the names listed in disabled.
func NewDefaultRegistry(store Store, gate Gate, disabled ...string) (*Registry, error) {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}

	r := NewRegistry()
	for _, src := range DefaultSources() {
		if skip[src.Name] {
			slog.Info("content source disabled by configuration", "source", src.Name)
			continue
		}
		a, err := NewSourceAdapter(src, store, gate)
		if err != nil {
			return nil, err
		}
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}
