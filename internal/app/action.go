package app

import (
	"fmt"

	"github.com/dshills/bly/internal/dispatcher/handler"
)

// ActionConfig describes one handler registration.
type ActionConfig struct {
	// Name is the action the handler responds to.
	Name string
	// Handler is invoked on every dispatch of Name.
	Handler handler.Handler
	// Ref is the handler name. Empty means a generated one.
	Ref string
}

// Action registers every config in order and returns their handler refs,
// one per config. All configs are validated before any is registered.
// A registration failure stops the batch; refs registered before it are
// returned along with the error.
func (a *App) Action(cfgs ...ActionConfig) ([]string, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no action configs", ErrInvalidArgument)
	}
	for i, cfg := range cfgs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("%w: action config %d: missing name", ErrInvalidArgument, i)
		}
		if handler.IsNil(cfg.Handler) {
			return nil, fmt.Errorf("%w: action config %d (%s): missing handler", ErrInvalidArgument, i, cfg.Name)
		}
	}

	refs := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		ref, err := a.dispatcher.Register(cfg.Name, cfg.Handler, cfg.Ref)
		if err != nil {
			return refs, NewOperationError("action", cfg.Name, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ActionOne registers a single config and returns its ref.
func (a *App) ActionOne(cfg ActionConfig) (string, error) {
	refs, err := a.Action(cfg)
	if err != nil {
		return "", err
	}
	return refs[0], nil
}

// ActionFunc registers fn for name and returns its ref.
func (a *App) ActionFunc(name string, fn func(waitFor handler.WaitFunc, payload any) error, ref string) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("%w: nil handler func", ErrInvalidArgument)
	}
	return a.ActionOne(ActionConfig{Name: name, Handler: handler.NewHandlerFunc(fn), Ref: ref})
}
