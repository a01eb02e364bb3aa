package security

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Capability names something a plugin may do beyond registering handlers
// and reporting results. Capabilities are hierarchical: granting "store"
// grants "store.read" and "store.write".
type Capability string

const (
	// CapabilityInject allows api.inject and api.after.
	CapabilityInject Capability = "dispatch.inject"

	// CapabilityExpose allows api.expose.
	CapabilityExpose Capability = "results.expose"

	// CapabilityStore grants both store capabilities.
	CapabilityStore Capability = "store"

	// CapabilityStoreRead allows api.store_get.
	CapabilityStoreRead Capability = "store.read"

	// CapabilityStoreWrite allows api.store_set.
	CapabilityStoreWrite Capability = "store.write"

	// CapabilityUnsafe opens the os and io Lua libraries.
	CapabilityUnsafe Capability = "unsafe"
)

// ErrPermissionDenied is matched by every CapabilityError.
var ErrPermissionDenied = errors.New("permission denied")

// ErrUnknownCapability is returned when parsing an unknown capability name.
var ErrUnknownCapability = errors.New("unknown capability")

// RiskLevel indicates how much a capability widens what a plugin can do.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskCritical
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CapabilityInfo provides metadata about a capability.
type CapabilityInfo struct {
	Name        Capability
	Description string
	RiskLevel   RiskLevel
}

var capabilityRegistry = map[Capability]CapabilityInfo{
	CapabilityInject: {
		Name:        CapabilityInject,
		Description: "Inject actions from handlers and after callbacks",
		RiskLevel:   RiskMedium,
	},
	CapabilityExpose: {
		Name:        CapabilityExpose,
		Description: "Publish values shared with other plugins",
		RiskLevel:   RiskLow,
	},
	CapabilityStore: {
		Name:        CapabilityStore,
		Description: "Read and write the shared store",
		RiskLevel:   RiskMedium,
	},
	CapabilityStoreRead: {
		Name:        CapabilityStoreRead,
		Description: "Read the shared store",
		RiskLevel:   RiskLow,
	},
	CapabilityStoreWrite: {
		Name:        CapabilityStoreWrite,
		Description: "Write the shared store",
		RiskLevel:   RiskMedium,
	},
	CapabilityUnsafe: {
		Name:        CapabilityUnsafe,
		Description: "Use the os and io Lua libraries",
		RiskLevel:   RiskCritical,
	},
}

// Default returns the capabilities granted to plugins that declare none.
func Default() []Capability {
	return []Capability{CapabilityInject, CapabilityExpose, CapabilityStore}
}

// Info returns metadata about a capability.
func Info(c Capability) (CapabilityInfo, bool) {
	info, ok := capabilityRegistry[c]
	return info, ok
}

// All returns every known capability, sorted.
func All() []Capability {
	caps := make([]Capability, 0, len(capabilityRegistry))
	for c := range capabilityRegistry {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// Parse validates a capability name.
func Parse(s string) (Capability, error) {
	c := Capability(strings.TrimSpace(s))
	if _, ok := capabilityRegistry[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
	}
	return c, nil
}

// ParseAll validates every name in names.
func ParseAll(names []string) ([]Capability, error) {
	caps := make([]Capability, 0, len(names))
	for _, n := range names {
		c, err := Parse(n)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// Implies reports whether having granted also grants required.
func Implies(granted, required Capability) bool {
	return granted == required || strings.HasPrefix(string(required), string(granted)+".")
}

// CapabilityError reports an operation attempted without its capability.
type CapabilityError struct {
	Plugin     string
	Capability Capability
	Operation  string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	who := "plugin"
	if e.Plugin != "" {
		who = "plugin " + e.Plugin
	}
	return fmt.Sprintf("%s: %s requires capability %q", who, e.Operation, e.Capability)
}

// Is matches ErrPermissionDenied.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrPermissionDenied
}
