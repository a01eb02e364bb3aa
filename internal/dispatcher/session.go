package dispatcher

// handlerState tracks one handler within a dispatch session.
type handlerState uint8

const (
	stateIdle handlerState = iota
	statePending
	stateHandled
)

// session is the execution state of a single Dispatch call. A new one is
// built for every dispatch and dropped when it returns.
type session struct {
	action  string
	payload any
	entries []entry
	state   map[string]handlerState
	order   []string // handler names in completion order
}

func newSession(action string, payload any, entries []entry) *session {
	state := make(map[string]handlerState, len(entries))
	for _, e := range entries {
		state[e.name] = stateIdle
	}
	return &session{
		action:  action,
		payload: payload,
		entries: entries,
		state:   state,
		order:   make([]string, 0, len(entries)),
	}
}

// lookup finds a handler of the session's action by name.
func (s *session) lookup(name string) (entry, bool) {
	for _, e := range s.entries {
		if e.name == name {
			return e, true
		}
	}
	return entry{}, false
}
