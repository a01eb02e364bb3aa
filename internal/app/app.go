// Package app provides the application structure that ties the dispatcher,
// the results reducer, the store registry and the lifecycle hooks together.
//
// An App starts in the not-started state. Handlers, reporters and render
// subscribers may be registered at any time, but Inject fails with
// ErrNotStarted until Start has been called.
package app

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dshills/bly/internal/dispatcher"
	"github.com/dshills/bly/internal/dispatcher/hook"
	"github.com/dshills/bly/internal/logging"
	"github.com/dshills/bly/internal/results"
	"github.com/dshills/bly/internal/store"
)

// App is the central coordinator for actions, results and rendering.
type App struct {
	dispatcher *dispatcher.Dispatcher
	reducer    *results.Reducer
	stores     *store.Registry
	hooks      *hook.Manager
	renders    hook.List[results.Snapshot]

	startCalled atomic.Bool
	started     atomic.Bool

	log  *logging.Logger
	opts Options
}

// Options configures the application.
type Options struct {
	// Dispatcher configures the underlying dispatcher. The zero value
	// means dispatcher.DefaultConfig().
	Dispatcher *dispatcher.Config

	// Logger receives structured logs. Nil discards them.
	Logger *logging.Logger

	// Audit registers the audit hook at construction.
	Audit bool
}

// New creates a new App with the given options.
func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	dcfg := dispatcher.DefaultConfig()
	if opts.Dispatcher != nil {
		dcfg = *opts.Dispatcher
	}
	if dcfg.Logger == nil {
		dcfg.Logger = log
	}

	a := &App{
		dispatcher: dispatcher.New(dcfg),
		reducer:    results.NewReducer(log),
		stores:     store.NewRegistry(),
		hooks:      hook.NewManager(),
		log:        log.WithComponent("app"),
		opts:       opts,
	}
	if opts.Audit {
		a.hooks.Register(hook.NewAuditHook(log))
	}
	return a
}

// Start moves the app to the started state. Pre-start and post-start
// observers run on the first call only; later calls are no-ops.
func (a *App) Start() *App {
	if !a.startCalled.CompareAndSwap(false, true) {
		return a
	}

	ev := hook.StartEvent{Time: time.Now()}
	a.hooks.RunPreStart(ev)
	a.started.Store(true)
	a.log.Debug("app started")
	a.hooks.RunPostStart(ev)
	return a
}

// IsStarted reports whether Start has completed its state change.
func (a *App) IsStarted() bool {
	return a.started.Load()
}

// Results registers a reporter for the post-dispatch results pass.
func (a *App) Results(r results.Reporter) error {
	if r == nil {
		return fmt.Errorf("%w: nil reporter", ErrInvalidArgument)
	}
	return a.reducer.Add(r)
}

// Render subscribes fn to the results snapshot produced after every
// dispatch. If the app is already started, fn is called once right away
// with the latest snapshot. The returned function removes the
// subscription and may be called any number of times.
func (a *App) Render(fn func(results.Snapshot)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil render function", ErrInvalidArgument)
	}

	unsub := a.renders.Subscribe(fn)
	if a.IsStarted() {
		fn(a.reducer.Latest())
	}
	return unsub, nil
}

// Latest returns the snapshot from the most recent results pass.
func (a *App) Latest() results.Snapshot {
	return a.reducer.Latest()
}

// Stores returns the store registry.
func (a *App) Stores() *store.Registry {
	return a.stores
}

// Dispatcher returns the underlying dispatcher.
func (a *App) Dispatcher() *dispatcher.Dispatcher {
	return a.dispatcher
}

// Hooks returns the lifecycle hook manager.
func (a *App) Hooks() *hook.Manager {
	return a.hooks
}

// Logger returns the app logger.
func (a *App) Logger() *logging.Logger {
	return a.log
}
