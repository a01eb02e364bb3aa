// Package plugin provides plugin registration for bly apps.
//
// A plugin is a named register function. Registration hands it an API with
// a restricted view of the app: actions, inject, results, render, stores,
// recursive registration, a private namespace for exposed values and an
// after hook that runs once the app first starts.
//
// # Registration
//
// Plugins in a batch register one at a time. Each register function must
// call next exactly once; next(nil) starts the following plugin, next(err)
// halts the batch. Plugins registered before the failure stay registered.
// The completion callback runs once, on the goroutine that made the final
// next call.
//
//	reg := plugin.NewRegistry(a, log)
//	err := reg.Register([]plugin.Registration{
//	    plugin.Use(dinner),
//	    {Plugin: pizza, Options: map[string]any{"cheese": true}},
//	}, func(err error) {
//	    if err != nil {
//	        log.Error("plugins failed", "error", err)
//	    }
//	})
//
// Registration is independent of dispatch and never runs on the dispatch
// path.
//
// # Names and Versions
//
// Names are unique per registry unless both the registered plugin and the
// newcomer set Multiple. Versions are optional strict semver. Requires maps
// other plugin names to semver constraints, checked when the plugin is
// about to register.
//
// # Discovery
//
// Loader finds plugins on disk without running them:
//
//	~/.config/bly/plugins/dinner.lua
//	~/.config/bly/plugins/pizza/
//	├── plugin.yaml      # Manifest (optional)
//	└── init.lua         # Entry point
//
// A manifest looks like:
//
//	name: pizza
//	version: 1.2.0
//	main: init.lua
//	requires:
//	  dinner: ">= 1.0.0"
//	options:
//	  cheese: true
//	capabilities: [store.read, dispatch.inject]
//
// Capabilities are listed in the security subpackage. A manifest without
// the key gets security.Default().
//
// The Lua host in the lua subpackage turns a discovered file into a Plugin.
package plugin
