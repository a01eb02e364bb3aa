// Package dispatcher delivers actions to named handlers, one dispatch at a time.
package dispatcher

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/bly/internal/dispatcher/handler"
	"github.com/dshills/bly/internal/logging"
)

// Dispatcher owns the action registry and the state of the running dispatch.
type Dispatcher struct {
	mu sync.Mutex

	registry *Registry

	// active is the running dispatch session, nil when idle.
	active *session

	// lastID is the last synthetic handler number handed out.
	lastID atomic.Uint64

	config  Config
	metrics *Metrics
	log     *logging.Logger
}

// New creates a new dispatcher with the given configuration.
func New(config Config) *Dispatcher {
	if config.IDPrefix == "" {
		config.IDPrefix = DefaultIDPrefix
	}

	d := &Dispatcher{
		registry: NewRegistry(),
		config:   config,
		log:      config.Logger,
	}
	if d.log == nil {
		d.log = logging.Nop()
	}
	d.log = d.log.WithComponent("dispatcher")

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}

	return d
}

// NewWithDefaults creates a new dispatcher with default configuration.
func NewWithDefaults() *Dispatcher {
	return New(DefaultConfig())
}

// Register adds h as a handler for action and returns its name.
// An empty name gets a generated one that is unique within the action.
func (d *Dispatcher) Register(action string, h handler.Handler, name string) (string, error) {
	if action == "" {
		return "", fmt.Errorf("%w: action name is required", ErrInvalidArgument)
	}
	if handler.IsNil(h) {
		return "", fmt.Errorf("%w: handler for action %q is nil", ErrInvalidArgument, action)
	}

	if name == "" {
		name = d.registry.AddGenerated(action, h, d.nextID)
	} else if err := d.registry.Add(action, name, h); err != nil {
		return "", err
	}

	d.log.Debug("handler registered", "action", action, "handler", name)
	return name, nil
}

// RegisterFunc registers a handler function for action.
func (d *Dispatcher) RegisterFunc(action string, fn func(waitFor handler.WaitFunc, payload any) error, name string) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("%w: handler for action %q is nil", ErrInvalidArgument, action)
	}
	return d.Register(action, handler.NewHandlerFunc(fn), name)
}

// Unregister removes the handler named name from action.
func (d *Dispatcher) Unregister(action, name string) error {
	if action == "" {
		return fmt.Errorf("%w: action name is required to unregister", ErrInvalidArgument)
	}
	if name == "" {
		return fmt.Errorf("%w: handler name is required to unregister", ErrInvalidArgument)
	}
	if err := d.registry.Remove(action, name); err != nil {
		return err
	}

	d.log.Debug("handler unregistered", "action", action, "handler", name)
	return nil
}

// UnregisterHandler removes h from action, looking it up by identity.
func (d *Dispatcher) UnregisterHandler(action string, h handler.Handler) error {
	if action == "" {
		return fmt.Errorf("%w: action name is required to unregister", ErrInvalidArgument)
	}
	if handler.IsNil(h) {
		return fmt.Errorf("%w: handler is required to unregister", ErrInvalidArgument)
	}

	name, ok := d.registry.NameOf(action, h)
	if !ok {
		return fmt.Errorf("%w: handler is not registered for action %q", ErrHandlerNotFound, action)
	}
	return d.Unregister(action, name)
}

// Dispatch runs every handler registered for action with payload.
// A nil payload is replaced by an empty map.
func (d *Dispatcher) Dispatch(action string, payload any) error {
	if payload == nil {
		payload = map[string]any{}
	}

	d.mu.Lock()
	if d.active != nil {
		running := d.active.action
		d.mu.Unlock()
		return fmt.Errorf("%w: cannot dispatch %q in the middle of %q", ErrAlreadyDispatching, action, running)
	}
	entries := d.registry.entries(action)
	if len(entries) == 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNoHandlers, action)
	}
	s := newSession(action, payload, entries)
	d.active = s
	d.mu.Unlock()

	start := time.Now()
	var err error
	defer func() {
		d.mu.Lock()
		d.active = nil
		d.mu.Unlock()

		elapsed := time.Since(start)
		if d.metrics != nil {
			d.metrics.RecordDispatch(action, elapsed, len(s.order), err)
		}
		if t := d.config.SlowThreshold; t > 0 && elapsed >= t {
			d.log.Warn("slow dispatch", "action", action, "duration", elapsed, "handlers", len(s.order))
		}
	}()

	d.log.Debug("dispatch started", "action", action, "handlers", len(entries))

	for _, e := range s.entries {
		if s.state[e.name] != stateIdle {
			continue
		}
		if err = d.invoke(s, e); err != nil {
			d.log.Debug("dispatch failed", "action", action, "error", err)
			return err
		}
	}

	d.log.Debug("dispatch finished", "action", action, "order", s.order)
	return nil
}

// WaitFor runs the named handlers of the current action before returning.
// Handlers that already ran are skipped; a handler that is still running
// means the wait-for graph has a cycle.
func (d *Dispatcher) WaitFor(names ...string) error {
	d.mu.Lock()
	s := d.active
	d.mu.Unlock()

	if s == nil {
		return fmt.Errorf("%w: can only wait for other handlers while dispatching", ErrNotDispatching)
	}

	for _, name := range names {
		e, ok := s.lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q does not map to a registered handler for %q", ErrUnknownHandler, name, s.action)
		}

		switch s.state[name] {
		case statePending:
			return fmt.Errorf("%w: detected while waiting for %q in %q", ErrCircularDependency, name, s.action)
		case stateHandled:
			continue
		}

		if err := d.invoke(s, e); err != nil {
			return err
		}
	}
	return nil
}

// IsDispatching returns true while a dispatch is in progress.
func (d *Dispatcher) IsDispatching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// invoke runs a single handler and marks it handled.
func (d *Dispatcher) invoke(s *session, e entry) (err error) {
	s.state[e.name] = statePending

	if d.config.RecoverFromPanic {
		defer func() {
			if r := recover(); r != nil {
				if d.metrics != nil {
					d.metrics.RecordPanic(s.action)
				}
				err = &HandlerError{Action: s.action, Handler: e.name, Err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
			}
		}()
	}

	if herr := e.handler.Handle(d.WaitFor, s.payload); herr != nil {
		return wrapHandlerError(s.action, e.name, herr)
	}

	s.state[e.name] = stateHandled
	s.order = append(s.order, e.name)
	return nil
}

// nextID returns the next synthetic handler name.
func (d *Dispatcher) nextID() string {
	return d.config.IDPrefix + strconv.FormatUint(d.lastID.Add(1), 10)
}

// Handlers returns the handler names registered for action, in order.
func (d *Dispatcher) Handlers(action string) []string {
	return d.registry.Names(action)
}

// Actions returns every action that has at least one handler.
func (d *Dispatcher) Actions() []string {
	return d.registry.List()
}

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Metrics returns the metrics collector (may be nil if disabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}
