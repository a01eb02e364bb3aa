package dispatcher

import (
	"time"

	"github.com/dshills/bly/internal/logging"
)

// DefaultIDPrefix prefixes generated handler names.
const DefaultIDPrefix = "ID_"

// Config holds dispatcher configuration options.
type Config struct {
	// IDPrefix prefixes synthetic handler names ("ID_1", "ID_2", ...).
	IDPrefix string

	// EnableMetrics enables dispatch timing and statistics collection.
	EnableMetrics bool

	// RecoverFromPanic converts a handler panic into an ErrHandlerPanic error.
	// When false the panic propagates after the dispatch session is closed.
	RecoverFromPanic bool

	// SlowThreshold logs a warning for dispatches that take at least this
	// long. Zero disables the check.
	SlowThreshold time.Duration

	// Logger receives debug output. Nil means no logging.
	Logger *logging.Logger
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		IDPrefix:         DefaultIDPrefix,
		EnableMetrics:    false,
		RecoverFromPanic: true,
	}
}

// WithMetrics returns a copy of the config with metrics enabled.
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// WithPanicRecovery returns a copy of the config with panic recovery set.
func (c Config) WithPanicRecovery(recover bool) Config {
	c.RecoverFromPanic = recover
	return c
}

// WithIDPrefix returns a copy of the config with the synthetic name prefix set.
func (c Config) WithIDPrefix(prefix string) Config {
	c.IDPrefix = prefix
	return c
}

// WithSlowThreshold returns a copy of the config with the slow dispatch
// threshold set.
func (c Config) WithSlowThreshold(d time.Duration) Config {
	c.SlowThreshold = d
	return c
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(l *logging.Logger) Config {
	c.Logger = l
	return c
}
