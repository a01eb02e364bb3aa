package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoPluginTable is returned when a script does not define a global
	// plugin table.
	ErrNoPluginTable = errors.New("lua: script does not define a plugin table")

	// ErrNotFunction is returned when a value expected to be a function is not.
	ErrNotFunction = errors.New("lua: value is not a function")
)
