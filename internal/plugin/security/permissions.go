package security

import (
	"sort"
	"sync"
)

// Checker holds the capabilities granted to one plugin.
type Checker struct {
	mu sync.RWMutex

	plugin  string
	granted map[Capability]bool
}

// NewChecker creates a checker for plugin with caps granted.
func NewChecker(plugin string, caps ...Capability) *Checker {
	c := &Checker{plugin: plugin, granted: make(map[Capability]bool)}
	c.Grant(caps...)
	return c
}

// Plugin returns the plugin name used in errors.
func (c *Checker) Plugin() string {
	return c.plugin
}

// SetPlugin sets the plugin name used in errors.
func (c *Checker) SetPlugin(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugin = name
}

// Grant grants caps.
func (c *Checker) Grant(caps ...Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cap := range caps {
		c.granted[cap] = true
	}
}

// Revoke revokes a capability. Children granted through it are revoked
// with it; children granted directly are kept.
func (c *Checker) Revoke(cap Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.granted, cap)
}

// Has reports whether cap is granted directly or through a parent.
func (c *Checker) Has(cap Capability) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.granted[cap] {
		return true
	}
	for g := range c.granted {
		if Implies(g, cap) {
			return true
		}
	}
	return false
}

// Check returns a *CapabilityError if cap is not granted.
func (c *Checker) Check(cap Capability, operation string) error {
	if c.Has(cap) {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &CapabilityError{Plugin: c.plugin, Capability: cap, Operation: operation}
}

// Capabilities returns the directly granted capabilities, sorted.
func (c *Checker) Capabilities() []Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()

	caps := make([]Capability, 0, len(c.granted))
	for cap := range c.granted {
		caps = append(caps, cap)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
