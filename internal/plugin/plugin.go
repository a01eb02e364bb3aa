package plugin

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// RegisterFunc sets a plugin up through api. It must call next exactly
// once, with nil on success. next may be called from any goroutine.
type RegisterFunc func(api *API, options any, next func(error))

// AfterFunc runs once after the app's first start.
type AfterFunc func() error

// Plugin is a named unit of registrations.
type Plugin struct {
	// Name identifies the plugin and its exposed namespace. Required.
	Name string

	// Version is optional; when set it must be strict semver.
	Version string

	// Multiple allows the plugin to be registered more than once. Both
	// the registered and the new definition must set it.
	Multiple bool

	// Requires maps plugin names to semver constraints they must satisfy.
	// Required plugins must already be registered.
	Requires map[string]string

	// Options is passed to Register unless the Registration overrides it.
	Options any

	// Register is called with the plugin API. Required.
	Register RegisterFunc
}

// Registration pairs a plugin with the options for one registration.
type Registration struct {
	Plugin  Plugin
	Options any
}

// Use wraps p in a Registration with its own options.
func Use(p Plugin) Registration {
	return Registration{Plugin: p}
}

func (r Registration) options() any {
	if r.Options != nil {
		return r.Options
	}
	return r.Plugin.Options
}

// Validate checks the definition without registering it.
func (p Plugin) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlugin)
	}
	if p.Register == nil {
		return fmt.Errorf("%w: %s: register function is required", ErrInvalidPlugin, p.Name)
	}
	if p.Version != "" {
		if _, err := semver.StrictNewVersion(p.Version); err != nil {
			return fmt.Errorf("%w: %s: %q", ErrInvalidVersion, p.Name, p.Version)
		}
	}
	for dep, constraint := range p.Requires {
		if dep == "" {
			return fmt.Errorf("%w: %s: empty dependency name", ErrInvalidPlugin, p.Name)
		}
		if _, err := semver.NewConstraint(constraint); err != nil {
			return fmt.Errorf("%w: %s requires %s %q", ErrInvalidConstraint, p.Name, dep, constraint)
		}
	}
	return nil
}

// satisfies reports whether version meets constraint. An empty version
// counts as 0.0.0.
func satisfies(version, constraint string) (bool, error) {
	if version == "" {
		version = "0.0.0"
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}
