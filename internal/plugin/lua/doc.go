// Package lua runs bly plugins written in Lua.
//
// A script sets a global plugin table with a register function. LoadFile,
// LoadString and FromInfo run the script in a sandboxed State and turn
// that table into a plugin.Plugin that registers like any Go plugin:
//
//	sc, err := lua.LoadFile("counter.lua", lua.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer sc.Close()
//
//	err = registry.RegisterPlugin(sc.Plugin(), done)
//
// # State
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load, loadstring, require and collectgarbage are removed and
// print writes to the logger. WithCallTimeout bounds each top-level call.
//
// WithPermissions sets the capabilities the api table checks. inject and
// after need dispatch.inject, expose needs results.expose and the store
// functions need store.read or store.write. The unsafe capability also
// opens os and io. FromInfo grants what the manifest lists.
//
// # The api table
//
// register receives an api table and the plugin options:
//
//	api.action(name, fn [, ref])        -- fn(wait_for, payload); returns ref
//	api.inject(name [, payload])        -- or api.inject({name=..., payload=...})
//	api.results(fn)                     -- fn(report); report(key, value)
//	api.render(fn)                      -- fn(snapshot); returns unsubscribe
//	api.expose(key, value)
//	api.after(fn)
//	api.store_get(name) / api.store_set(name, value)
//	api.log(level, message)
//
// Go errors raised into Lua keep their identity: a handler that lets a
// wait_for error propagate fails the dispatch with the original error.
//
// # Bridge
//
// Bridge converts values. Integral Lua numbers become int64, sequences
// become []any and other tables map[string]any. Functions do not cross.
package lua
