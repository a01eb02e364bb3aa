package hook

import (
	"time"

	"github.com/dshills/bly/internal/results"
)

// Hook is the base interface for named dispatch hooks.
type Hook interface {
	// Name returns a unique identifier for this hook.
	Name() string

	// Priority returns the hook priority. Higher values run first.
	// Standard priorities:
	//   1000+ = system/critical hooks
	//   500-999 = framework hooks
	//   100-499 = plugin hooks
	//   0-99 = user hooks
	Priority() int
}

// PreDispatchHook is called before an action is dispatched.
type PreDispatchHook interface {
	Hook
	PreDispatch(ev PreDispatchEvent)
}

// PostDispatchHook is called after the dispatch and the results pass.
type PostDispatchHook interface {
	Hook
	PostDispatch(ev DispatchEvent)
}

// StartEvent is delivered to start observers.
type StartEvent struct {
	Time time.Time
}

// PreDispatchEvent describes an action about to be dispatched.
type PreDispatchEvent struct {
	Action  string
	Payload any
}

// DispatchEvent describes a completed dispatch.
type DispatchEvent struct {
	Action   string
	Payload  any
	Snapshot results.Snapshot
	Duration time.Duration

	// Err is the first error from the handlers or the results pass.
	Err error
}

// PreDispatchFunc wraps a function as a PreDispatchHook.
type PreDispatchFunc struct {
	name     string
	priority int
	fn       func(ev PreDispatchEvent)
}

// NewPreDispatchFunc creates a new PreDispatchFunc hook.
func NewPreDispatchFunc(name string, priority int, fn func(ev PreDispatchEvent)) *PreDispatchFunc {
	return &PreDispatchFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PreDispatchFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PreDispatchFunc) Priority() int { return f.priority }

// PreDispatch implements PreDispatchHook.
func (f *PreDispatchFunc) PreDispatch(ev PreDispatchEvent) {
	if f.fn != nil {
		f.fn(ev)
	}
}

// PostDispatchFunc wraps a function as a PostDispatchHook.
type PostDispatchFunc struct {
	name     string
	priority int
	fn       func(ev DispatchEvent)
}

// NewPostDispatchFunc creates a new PostDispatchFunc hook.
func NewPostDispatchFunc(name string, priority int, fn func(ev DispatchEvent)) *PostDispatchFunc {
	return &PostDispatchFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PostDispatchFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PostDispatchFunc) Priority() int { return f.priority }

// PostDispatch implements PostDispatchHook.
func (f *PostDispatchFunc) PostDispatch(ev DispatchEvent) {
	if f.fn != nil {
		f.fn(ev)
	}
}
