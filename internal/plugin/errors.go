package plugin

import (
	"errors"

	"github.com/dshills/bly/internal/app"
)

// Plugin system errors.
var (
	// ErrInvalidPlugin is returned when a plugin definition is malformed.
	ErrInvalidPlugin = errors.New("plugin: invalid plugin")

	// ErrInvalidArgument is shared with the app for malformed API calls.
	ErrInvalidArgument = app.ErrInvalidArgument

	// ErrDuplicatePlugin is returned when a plugin name is already taken and
	// at least one side did not opt in to multiple registrations.
	ErrDuplicatePlugin = errors.New("plugin: already registered")

	// ErrInvalidVersion is returned for a version that is not strict semver.
	ErrInvalidVersion = errors.New("plugin: version must be valid semver")

	// ErrInvalidConstraint is returned for an unparsable version constraint.
	ErrInvalidConstraint = errors.New("plugin: invalid version constraint")

	// ErrDependencyNotFound is returned when a required plugin is not registered.
	ErrDependencyNotFound = errors.New("plugin: dependency not registered")

	// ErrIncompatibleVersion is returned when a dependency's version does
	// not satisfy the required constraint.
	ErrIncompatibleVersion = errors.New("plugin: dependency version not satisfied")

	// ErrPluginPanic is returned when a register function panics.
	ErrPluginPanic = errors.New("plugin: register panicked")

	// ErrPluginNotFound is returned when a plugin cannot be located on disk.
	ErrPluginNotFound = errors.New("plugin: not found")

	// ErrNoEntryPoint is returned when a plugin directory has no Lua entry point.
	ErrNoEntryPoint = errors.New("plugin: no entry point (init.lua or plugin.lua)")
)
