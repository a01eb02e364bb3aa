package plugin

import (
	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/dispatcher/handler"
	"github.com/dshills/bly/internal/logging"
	"github.com/dshills/bly/internal/results"
	"github.com/dshills/bly/internal/store"
)

// API is the capability set a plugin receives during registration.
type API struct {
	reg    *Registry
	plugin Plugin
	log    *logging.Logger
}

func newAPI(reg *Registry, p Plugin) *API {
	return &API{
		reg:    reg,
		plugin: p,
		log:    reg.log.With("plugin", p.Name),
	}
}

// Name returns the plugin name.
func (p *API) Name() string { return p.plugin.Name }

// Version returns the plugin version.
func (p *API) Version() string { return p.plugin.Version }

// Logger returns a logger tagged with the plugin name.
func (p *API) Logger() *logging.Logger { return p.log }

// Action registers action handlers. See app.App.Action.
func (p *API) Action(cfgs ...app.ActionConfig) ([]string, error) {
	return p.reg.app.Action(cfgs...)
}

// ActionFunc registers fn for the named action.
func (p *API) ActionFunc(name string, fn func(waitFor handler.WaitFunc, payload any) error, ref string) (string, error) {
	return p.reg.app.ActionFunc(name, fn, ref)
}

// Inject dispatches an action. See app.App.Inject.
func (p *API) Inject(req app.ActionRequest, payload any) error {
	_, err := p.reg.app.Inject(req, payload)
	return err
}

// Render subscribes to results snapshots. See app.App.Render.
func (p *API) Render(fn func(results.Snapshot)) (func(), error) {
	return p.reg.app.Render(fn)
}

// Results registers a reporter. See app.App.Results.
func (p *API) Results(r results.Reporter) error {
	return p.reg.app.Results(r)
}

// Stores returns the app's store registry.
func (p *API) Stores() *store.Registry {
	return p.reg.app.Stores()
}

// Register registers sub-plugins on the same registry.
func (p *API) Register(regs []Registration, done func(error)) error {
	return p.reg.Register(regs, done)
}

// Expose stores value under key in this plugin's namespace.
func (p *API) Expose(key string, value any) error {
	return p.reg.expose(p.plugin.Name, key, value)
}

// After schedules fn to run once after the app's first start.
func (p *API) After(fn AfterFunc) error {
	return p.reg.addAfter(p.plugin.Name, fn)
}
