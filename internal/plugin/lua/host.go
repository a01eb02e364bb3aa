package lua

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/dispatcher/handler"
	"github.com/dshills/bly/internal/plugin"
	"github.com/dshills/bly/internal/plugin/security"
	"github.com/dshills/bly/internal/results"
)

// Script is a plugin defined by a Lua chunk. The chunk must set a global
// table named plugin:
//
//	plugin = {
//	  name = "counter",
//	  version = "1.0.0",
//	  register = function(api, options)
//	    api.action("increment", function(wait_for, payload) ... end)
//	  end,
//	}
type Script struct {
	state  *State
	bridge *Bridge
	def    plugin.Plugin
}

// LoadFile runs the Lua file at path and reads its plugin table.
func LoadFile(path string, opts ...StateOption) (*Script, error) {
	s := NewState(opts...)
	if err := s.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return newScript(s)
}

// LoadString runs src and reads its plugin table. chunkName is used in
// error messages only.
func LoadString(chunkName, src string, opts ...StateOption) (*Script, error) {
	s := NewState(opts...)
	if err := s.DoString(src); err != nil {
		s.Close()
		return nil, fmt.Errorf("load %s: %w", chunkName, err)
	}
	return newScript(s)
}

// FromInfo loads a discovered plugin. Manifest metadata fills the fields
// the script leaves unset, and the manifest's capabilities are granted to
// the script.
func FromInfo(info *plugin.PluginInfo, opts ...StateOption) (*Script, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: nil plugin info", plugin.ErrInvalidArgument)
	}
	if info.Error != nil {
		return nil, fmt.Errorf("plugin %s: %w", info.Name, info.Error)
	}
	if info.Manifest == nil {
		return nil, fmt.Errorf("plugin %s: %w", info.Name, plugin.ErrNoEntryPoint)
	}

	perms := security.NewChecker(info.Manifest.Name, info.Manifest.Grants()...)
	opts = append(opts, WithPermissions(perms))

	sc, err := LoadFile(info.Manifest.MainPath(), opts...)
	if err != nil {
		return nil, err
	}
	sc.def = info.Manifest.Apply(sc.def)
	return sc, nil
}

func newScript(s *State) (*Script, error) {
	tbl, ok := s.GetGlobal("plugin").(*lua.LTable)
	if !ok {
		s.Close()
		return nil, ErrNoPluginTable
	}

	sc := &Script{state: s, bridge: NewBridge(s.L)}
	def, err := sc.readDefinition(tbl)
	if err != nil {
		s.Close()
		return nil, err
	}
	sc.def = def
	if s.perms.Plugin() == "" {
		s.perms.SetPlugin(def.Name)
	}
	return sc, nil
}

func (sc *Script) readDefinition(tbl *lua.LTable) (plugin.Plugin, error) {
	fn, ok := TableFunc(tbl, "register")
	if !ok {
		return plugin.Plugin{}, fmt.Errorf("%w: plugin.register", ErrNotFunction)
	}

	var def plugin.Plugin
	def.Name, _ = TableString(tbl, "name")
	def.Version, _ = TableString(tbl, "version")
	def.Multiple = lua.LVAsBool(tbl.RawGetString("multiple"))

	if req, ok := tbl.RawGetString("requires").(*lua.LTable); ok {
		def.Requires = make(map[string]string)
		req.ForEach(func(k, v lua.LValue) {
			def.Requires[k.String()] = v.String()
		})
	}
	if opts := tbl.RawGetString("options"); opts != lua.LNil {
		def.Options = sc.bridge.ToGoValue(opts)
	}

	def.Register = func(api *plugin.API, options any, next func(error)) {
		next(sc.register(fn, api, options))
	}
	return def, nil
}

// allow raises a permission error in L unless cap is granted.
func (sc *Script) allow(L *lua.LState, cap security.Capability, operation string) {
	if err := sc.state.perms.Check(cap, operation); err != nil {
		raise(L, err)
	}
}

// register calls the script's register function. Returning a string or
// false from it fails the registration.
func (sc *Script) register(fn *lua.LFunction, api *plugin.API, options any) error {
	ret, err := sc.state.Call(fn, 1, sc.apiTable(api), sc.bridge.ToLuaValue(options))
	if err != nil {
		return err
	}
	switch v := ret[0].(type) {
	case lua.LString:
		return errors.New(string(v))
	case lua.LBool:
		if !bool(v) {
			return fmt.Errorf("plugin %s: register returned false", api.Name())
		}
	}
	return nil
}

// Plugin returns the plugin definition backed by the script.
func (sc *Script) Plugin() plugin.Plugin {
	return sc.def
}

// State returns the script's Lua state.
func (sc *Script) State() *State {
	return sc.state
}

// Close releases the Lua state. Handlers registered by the script fail
// with ErrStateClosed afterwards.
func (sc *Script) Close() error {
	return sc.state.Close()
}

// apiTable builds the table passed to register.
func (sc *Script) apiTable(api *plugin.API) *lua.LTable {
	L := sc.state.L
	t := L.NewTable()
	t.RawSetString("name", lua.LString(api.Name()))
	t.RawSetString("version", lua.LString(api.Version()))

	L.SetFuncs(t, map[string]lua.LGFunction{
		"action":    sc.luaAction(api),
		"inject":    sc.luaInject(api),
		"results":   sc.luaResults(api),
		"render":    sc.luaRender(api),
		"expose":    sc.luaExpose(api),
		"after":     sc.luaAfter(api),
		"store_get": sc.luaStoreGet(api),
		"store_set": sc.luaStoreSet(api),
		"log":       sc.luaLog(api),
	})
	return t
}

// action(name, fn [, ref]) -> ref
func (sc *Script) luaAction(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		ref := L.OptString(3, "")

		got, err := api.ActionFunc(name, sc.handler(fn), ref)
		if err != nil {
			raise(L, err)
			return 0
		}
		L.Push(lua.LString(got))
		return 1
	}
}

// handler adapts fn to a dispatcher handler. fn receives wait_for and the
// payload; wait_for takes one or more refs.
func (sc *Script) handler(fn *lua.LFunction) func(handler.WaitFunc, any) error {
	return func(waitFor handler.WaitFunc, payload any) error {
		if sc.state.IsClosed() {
			return ErrStateClosed
		}
		wf := sc.state.L.NewFunction(func(L *lua.LState) int {
			n := L.GetTop()
			refs := make([]string, 0, n)
			for i := 1; i <= n; i++ {
				refs = append(refs, L.CheckString(i))
			}
			if err := waitFor(refs...); err != nil {
				raise(L, err)
			}
			return 0
		})
		_, err := sc.state.Call(fn, 0, wf, sc.bridge.ToLuaValue(payload))
		return err
	}
}

// inject(name [, payload]) or inject({name = ..., payload = ...})
func (sc *Script) luaInject(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		sc.allow(L, security.CapabilityInject, "inject")

		var req app.ActionRequest
		switch v := L.CheckAny(1).(type) {
		case lua.LString:
			req = app.Name(v)
		case *lua.LTable:
			name, _ := TableString(v, "name")
			req = app.Descriptor{Name: name, Payload: sc.bridge.ToGoValue(v.RawGetString("payload"))}
		default:
			L.ArgError(1, "action name or descriptor expected")
			return 0
		}

		var payload any
		if lv := L.Get(2); lv != lua.LNil {
			payload = sc.bridge.ToGoValue(lv)
		}
		if err := api.Inject(req, payload); err != nil {
			raise(L, err)
		}
		return 0
	}
}

// results(fn) where fn receives report(key, value)
func (sc *Script) luaResults(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		err := api.Results(func(report results.ReportFunc) error {
			if sc.state.IsClosed() {
				return ErrStateClosed
			}
			rf := sc.state.L.NewFunction(func(L *lua.LState) int {
				key := L.CheckString(1)
				if err := report(key, sc.bridge.ToGoValue(L.Get(2))); err != nil {
					raise(L, err)
				}
				return 0
			})
			_, err := sc.state.Call(fn, 0, rf)
			return err
		})
		if err != nil {
			raise(L, err)
		}
		return 0
	}
}

// render(fn) -> unsubscribe
func (sc *Script) luaRender(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		unsubscribe, err := api.Render(func(snap results.Snapshot) {
			if sc.state.IsClosed() {
				return
			}
			if _, err := sc.state.Call(fn, 0, sc.bridge.ToLuaValue(snap)); err != nil {
				api.Logger().Warn("render callback failed", "error", err)
			}
		})
		if err != nil {
			raise(L, err)
			return 0
		}
		L.Push(L.NewFunction(func(*lua.LState) int {
			unsubscribe()
			return 0
		}))
		return 1
	}
}

// expose(key, value)
func (sc *Script) luaExpose(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		sc.allow(L, security.CapabilityExpose, "expose")

		key := L.CheckString(1)
		if err := api.Expose(key, sc.bridge.ToGoValue(L.Get(2))); err != nil {
			raise(L, err)
		}
		return 0
	}
}

// after(fn)
func (sc *Script) luaAfter(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		sc.allow(L, security.CapabilityInject, "after")

		fn := L.CheckFunction(1)
		err := api.After(func() error {
			if sc.state.IsClosed() {
				return ErrStateClosed
			}
			_, err := sc.state.Call(fn, 0)
			return err
		})
		if err != nil {
			raise(L, err)
		}
		return 0
	}
}

// store_get(name) -> value or nil
func (sc *Script) luaStoreGet(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		sc.allow(L, security.CapabilityStoreRead, "store_get")

		v, ok := api.Stores().Get(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(sc.bridge.ToLuaValue(v))
		return 1
	}
}

// store_set(name, value)
func (sc *Script) luaStoreSet(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		sc.allow(L, security.CapabilityStoreWrite, "store_set")

		name := L.CheckString(1)
		if err := api.Stores().Set(name, sc.bridge.ToGoValue(L.Get(2))); err != nil {
			raise(L, err)
		}
		return 0
	}
}

// log(level, message)
func (sc *Script) luaLog(api *plugin.API) lua.LGFunction {
	return func(L *lua.LState) int {
		level := strings.ToLower(L.CheckString(1))
		msg := L.CheckString(2)
		log := api.Logger()
		switch level {
		case "debug":
			log.Debug(msg)
		case "warn":
			log.Warn(msg)
		case "error":
			log.Error(msg)
		default:
			log.Info(msg)
		}
		return 0
	}
}
