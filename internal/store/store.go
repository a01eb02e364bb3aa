// Package store holds named application state objects.
//
// Stores are plain values registered by name. The registry does not copy
// or inspect them; Get returns exactly the value that was set.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInvalidArgument is returned for an empty name or a nil value.
var ErrInvalidArgument = errors.New("store: invalid argument")

// Mode selects how SetAll treats existing stores.
type Mode int

const (
	// Merge adds or overwrites the given stores and keeps the rest.
	Merge Mode = iota
	// Replace drops every existing store first.
	Replace
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Merge:
		return "merge"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Registry maps store names to store values.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]any)}
}

// Set registers value under name, replacing any previous value.
func (r *Registry) Set(name string, value any) error {
	if err := validate(name, value); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = value
	return nil
}

// SetAll registers every entry of stores. The whole map is validated before
// anything is written.
func (r *Registry) SetAll(stores map[string]any, mode Mode) error {
	if stores == nil {
		return fmt.Errorf("%w: nil store map", ErrInvalidArgument)
	}
	for name, value := range stores {
		if err := validate(name, value); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if mode == Replace {
		r.stores = make(map[string]any, len(stores))
	}
	for name, value := range stores {
		r.stores[name] = value
	}
	return nil
}

// Get returns the store registered under name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.stores[name]
	return v, ok
}

// Delete removes a store. It reports whether the store existed.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stores[name]
	delete(r.stores, name)
	return ok
}

// Names returns the registered store names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

func validate(name string, value any) error {
	if name == "" {
		return fmt.Errorf("%w: empty store name", ErrInvalidArgument)
	}
	if value == nil {
		return fmt.Errorf("%w: nil store %q", ErrInvalidArgument, name)
	}
	return nil
}
