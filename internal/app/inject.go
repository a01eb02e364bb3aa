package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/bly/internal/dispatcher"
	"github.com/dshills/bly/internal/dispatcher/hook"
)

// Inject resolves req and dispatches the resulting action. Pre-dispatch
// observers run first. When the handlers succeed, the results pass runs and
// post-dispatch observers and render subscribers receive the new snapshot.
// When a handler fails, post-dispatch observers see the error with the
// previous snapshot and render subscribers are not called. An inject
// rejected because another dispatch is running reaches no observer.
//
// A nil payload is replaced by an empty map[string]any. Inject returns the
// app for chaining.
func (a *App) Inject(req ActionRequest, payload any) (*App, error) {
	if !a.IsStarted() {
		return a, ErrNotStarted
	}

	name, payload, ok, err := a.resolve(req, payload)
	if err != nil {
		return a, err
	}
	if !ok {
		a.log.Debug("action creator produced no action")
		return a, nil
	}
	if payload == nil {
		payload = map[string]any{}
	}

	return a, a.dispatch(name, payload)
}

// InjectName dispatches the named action.
func (a *App) InjectName(name string, payload any) (*App, error) {
	return a.Inject(Name(name), payload)
}

func (a *App) dispatch(name string, payload any) error {
	if a.dispatcher.IsDispatching() {
		err := fmt.Errorf("%w: cannot inject %q", dispatcher.ErrAlreadyDispatching, name)
		return NewOperationError("inject", name, err)
	}

	start := time.Now()
	a.hooks.RunPreDispatch(hook.PreDispatchEvent{Action: name, Payload: payload})

	if err := a.dispatcher.Dispatch(name, payload); err != nil {
		if errors.Is(err, dispatcher.ErrAlreadyDispatching) {
			// lost a race with another goroutine; nothing ran
			return NewOperationError("inject", name, err)
		}
		a.hooks.RunPostDispatch(hook.DispatchEvent{
			Action:   name,
			Payload:  payload,
			Snapshot: a.reducer.Latest(),
			Duration: time.Since(start),
			Err:      err,
		})
		return NewOperationError("inject", name, err)
	}

	snap, reduceErr := a.reducer.Reduce()
	a.hooks.RunPostDispatch(hook.DispatchEvent{
		Action:   name,
		Payload:  payload,
		Snapshot: snap,
		Duration: time.Since(start),
		Err:      reduceErr,
	})
	a.renders.Notify(snap)

	if reduceErr != nil {
		return NewOperationError("results", name, reduceErr)
	}
	return nil
}

// Chain sequences injects and keeps the first error. Once an inject fails
// the remaining ones are skipped.
type Chain struct {
	app *App
	err error
}

// Chain starts a new inject sequence.
func (a *App) Chain() *Chain {
	return &Chain{app: a}
}

// Inject dispatches req unless an earlier step failed.
func (c *Chain) Inject(req ActionRequest, payload any) *Chain {
	if c.err != nil {
		return c
	}
	_, c.err = c.app.Inject(req, payload)
	return c
}

// InjectName dispatches the named action unless an earlier step failed.
func (c *Chain) InjectName(name string, payload any) *Chain {
	return c.Inject(Name(name), payload)
}

// Err returns the first error in the chain.
func (c *Chain) Err() error {
	return c.err
}

// App returns the app the chain injects into.
func (c *Chain) App() *App {
	return c.app
}
