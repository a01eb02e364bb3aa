package dispatcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/bly/internal/dispatcher/handler"
)

// entry is one named handler registration.
type entry struct {
	name    string
	handler handler.Handler
}

// Registry maps action names to their handlers, keyed by handler name.
// Handlers of one action keep their registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]entry // action name -> handlers in registration order
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]entry),
	}
}

// Add registers h under name for an action.
func (r *Registry) Add(action, name string, h handler.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(action, name) >= 0 {
		return fmt.Errorf("%w: %q already used for action %q", ErrDuplicateHandlerName, name, action)
	}
	r.handlers[action] = append(r.handlers[action], entry{name: name, handler: h})
	return nil
}

// AddGenerated registers h under the first name produced by next that is not
// already taken for the action, and returns that name.
func (r *Registry) AddGenerated(action string, h handler.Handler, next func() string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := next()
	for r.indexLocked(action, name) >= 0 {
		name = next()
	}
	r.handlers[action] = append(r.handlers[action], entry{name: name, handler: h})
	return name
}

// Remove removes the handler registered under name for an action.
func (r *Registry) Remove(action, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(action, name)
	if i < 0 {
		return fmt.Errorf("%w: no handler named %q for action %q", ErrHandlerNotFound, name, action)
	}

	entries := r.handlers[action]
	entries = append(entries[:i:i], entries[i+1:]...)
	if len(entries) == 0 {
		delete(r.handlers, action)
		return nil
	}
	r.handlers[action] = entries
	return nil
}

// NameOf returns the name under which h is registered for an action.
func (r *Registry) NameOf(action string, h handler.Handler) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.handlers[action] {
		if handler.Same(e.handler, h) {
			return e.name, true
		}
	}
	return "", false
}

// Has returns true if a handler named name is registered for the action.
func (r *Registry) Has(action, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(action, name) >= 0
}

// Names returns the handler names of an action in registration order.
func (r *Registry) Names(action string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.handlers[action]
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// entries returns a copy of the action's handlers.
func (r *Registry) entries(action string) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.handlers[action]
	out := make([]entry, len(entries))
	copy(out, entries)
	return out
}

// List returns all action names with at least one handler.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of actions with handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all registered handlers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]entry)
}

func (r *Registry) indexLocked(action, name string) int {
	for i, e := range r.handlers[action] {
		if e.name == name {
			return i
		}
	}
	return -1
}
