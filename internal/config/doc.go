// Package config loads bly settings.
//
// Settings are layered with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment (BLY_*)     │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. YAML file               │  ← ~/.config/bly/config.yaml or --config
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Example file:
//
//	log_level: debug
//	id_prefix: H
//	metrics: true
//	plugin_paths: [./plugins]
//	plugins: [./counter.lua]
//	lua_call_timeout: 2s
//	history: 10
//
// The same settings come from BLY_LOG_LEVEL, BLY_ID_PREFIX, BLY_METRICS,
// BLY_PLUGIN_PATHS (comma separated) and so on. Unknown file keys are a
// ParseError; Validate reports bad values as a ValidationError.
package config
