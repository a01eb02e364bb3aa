package plugin

// State represents the registration state of a plugin.
type State int

// Plugin states.
const (
	// StateUnregistered - Plugin is known but not registered.
	StateUnregistered State = iota

	// StateRegistering - Register was called and next has not been.
	StateRegistering

	// StateRegistered - Plugin called next without error.
	StateRegistered

	// StateFailed - Plugin reported an error or could not be loaded.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsDone returns true once registration has finished, successfully or not.
func (s State) IsDone() bool {
	return s == StateRegistered || s == StateFailed
}
