package plugin

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/dispatcher/hook"
	"github.com/dshills/bly/internal/logging"
)

// Info describes a registered plugin.
type Info struct {
	Name     string
	Version  string
	State    State
	Multiple bool
	// Count is the number of registrations under this name.
	Count int
	// Err is the error the last registration reported, if any.
	Err error
}

type after struct {
	plugin string
	fn     AfterFunc
}

// Registry registers plugins against one app. Registration is sequential:
// each plugin's next callback starts the following plugin. A failure halts
// the batch without undoing earlier registrations.
type Registry struct {
	app *app.App
	log *logging.Logger

	mu       sync.Mutex
	plugins  map[string]*Info
	order    []string
	exposed  map[string]map[string]any
	afters   []after
	afterRan bool
	afterErr error
}

// NewRegistry creates a registry bound to a. After callbacks are tied to
// the app's first start; if a is already started they run as soon as they
// are added.
func NewRegistry(a *app.App, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	r := &Registry{
		app:     a,
		log:     log.WithComponent("plugin"),
		plugins: make(map[string]*Info),
		exposed: make(map[string]map[string]any),
	}
	if a.IsStarted() {
		r.afterRan = true
	} else {
		a.Hooks().OnPostStart(func(hook.StartEvent) { r.runAfters() })
	}
	return r
}

// Register registers plugins in order and calls done once when the last
// one has called next, or as soon as one fails. Malformed definitions and
// a nil done are rejected before anything runs.
func (r *Registry) Register(regs []Registration, done func(error)) error {
	if done == nil {
		return fmt.Errorf("%w: completion callback is required", ErrInvalidArgument)
	}
	for i, reg := range regs {
		if err := reg.Plugin.Validate(); err != nil {
			return fmt.Errorf("registration %d: %w", i, err)
		}
	}

	batch := make([]Registration, len(regs))
	copy(batch, regs)
	r.registerAt(batch, 0, done)
	return nil
}

// RegisterPlugin registers a single plugin with its own options.
func (r *Registry) RegisterPlugin(p Plugin, done func(error)) error {
	return r.Register([]Registration{Use(p)}, done)
}

func (r *Registry) registerAt(regs []Registration, i int, done func(error)) {
	if i == len(regs) {
		done(nil)
		return
	}

	reg := regs[i]
	name := reg.Plugin.Name
	if err := r.claim(reg.Plugin); err != nil {
		r.log.Warn("plugin rejected", "plugin", name, "error", err)
		done(err)
		return
	}
	r.log.Debug("registering plugin", "plugin", name, "version", reg.Plugin.Version)

	var (
		once       sync.Once
		nextCalled atomic.Bool
	)
	next := func(err error) {
		called := false
		once.Do(func() {
			called = true
			nextCalled.Store(true)
			if err != nil {
				r.finish(name, err)
				r.log.Error("plugin registration failed", "plugin", name, "error", err)
				done(fmt.Errorf("plugin %s: %w", name, err))
				return
			}
			r.finish(name, nil)
			r.registerAt(regs, i+1, done)
		})
		if !called {
			r.log.Warn("next called more than once", "plugin", name)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			// Panics raised after next belong to later plugins or to done.
			if nextCalled.Load() {
				panic(p)
			}
			next(fmt.Errorf("%w: %v", ErrPluginPanic, p))
		}
	}()
	reg.Plugin.Register(newAPI(r, reg.Plugin), reg.options(), next)
}

// claim records p as registering after checking names and dependencies.
func (r *Registry) claim(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.plugins[p.Name]
	if ok && !(existing.Multiple && p.Multiple) {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name)
	}

	for dep, constraint := range p.Requires {
		info, ok := r.plugins[dep]
		if !ok || info.State != StateRegistered {
			return fmt.Errorf("%w: %s requires %s", ErrDependencyNotFound, p.Name, dep)
		}
		ok, err := satisfies(info.Version, constraint)
		if err != nil {
			return fmt.Errorf("%w: %s requires %s %q: %v", ErrIncompatibleVersion, p.Name, dep, constraint, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s requires %s %s, have %s", ErrIncompatibleVersion, p.Name, dep, constraint, info.Version)
		}
	}

	if !ok {
		existing = &Info{Name: p.Name}
		r.plugins[p.Name] = existing
		r.order = append(r.order, p.Name)
	}
	existing.Version = p.Version
	existing.Multiple = p.Multiple
	existing.State = StateRegistering
	existing.Err = nil
	existing.Count++

	if _, ok := r.exposed[p.Name]; !ok {
		r.exposed[p.Name] = make(map[string]any)
	}
	return nil
}

func (r *Registry) finish(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.plugins[name]
	if err != nil {
		info.State = StateFailed
		info.Err = err
		return
	}
	info.State = StateRegistered
}

func (r *Registry) expose(plugin, key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: expose key is required", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.exposed[plugin][key] = value
	return nil
}

func (r *Registry) addAfter(plugin string, fn AfterFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil after function", ErrInvalidArgument)
	}

	r.mu.Lock()
	if !r.afterRan {
		r.afters = append(r.afters, after{plugin: plugin, fn: fn})
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := fn(); err != nil {
		r.log.Error("after hook failed", "plugin", plugin, "error", err)
		return fmt.Errorf("plugin %s: after: %w", plugin, err)
	}
	return nil
}

// runAfters runs queued after callbacks once. Failures are collected and
// logged; every callback runs regardless of earlier failures.
func (r *Registry) runAfters() {
	r.mu.Lock()
	if r.afterRan {
		r.mu.Unlock()
		return
	}
	r.afterRan = true
	afters := r.afters
	r.afters = nil
	r.mu.Unlock()

	var result *multierror.Error
	for _, a := range afters {
		if err := a.fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("plugin %s: after: %w", a.plugin, err))
		}
	}

	err := result.ErrorOrNil()
	if err != nil {
		r.log.Error("after hooks failed", "count", len(result.Errors), "error", err)
	}

	r.mu.Lock()
	r.afterErr = err
	r.mu.Unlock()
}

// AfterErr returns the aggregated error from the after callbacks run at
// start, or nil.
func (r *Registry) AfterErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.afterErr
}

// Exposed returns a copy of the values the named plugin exposed.
func (r *Registry) Exposed(name string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.exposed[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(ns), true
}

// Info returns the registration record for name.
func (r *Registry) Info(name string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.plugins[name]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Plugins returns plugin names in first-registration order.
func (r *Registry) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// App returns the app plugins register against.
func (r *Registry) App() *app.App {
	return r.app
}
