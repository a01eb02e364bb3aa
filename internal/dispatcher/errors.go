package dispatcher

import "errors"

// Dispatcher errors.
var (
	// ErrInvalidArgument indicates malformed input to a registration call.
	ErrInvalidArgument = errors.New("dispatcher: invalid argument")

	// ErrDuplicateHandlerName indicates a handler name is already used for the action.
	ErrDuplicateHandlerName = errors.New("dispatcher: duplicate handler name")

	// ErrHandlerNotFound indicates an unregister target does not exist.
	ErrHandlerNotFound = errors.New("dispatcher: handler not found")

	// ErrAlreadyDispatching indicates a dispatch was attempted during another one.
	ErrAlreadyDispatching = errors.New("dispatcher: already dispatching")

	// ErrNoHandlers indicates the action has no registered handlers.
	ErrNoHandlers = errors.New("dispatcher: no handlers for action")

	// ErrNotDispatching indicates WaitFor was called outside a dispatch.
	ErrNotDispatching = errors.New("dispatcher: not dispatching")

	// ErrCircularDependency indicates a WaitFor target is already running.
	ErrCircularDependency = errors.New("dispatcher: circular dependency")

	// ErrUnknownHandler indicates a WaitFor target is not registered for the action.
	ErrUnknownHandler = errors.New("dispatcher: unknown handler")

	// ErrHandlerPanic indicates the handler panicked.
	ErrHandlerPanic = errors.New("dispatcher: handler panic")
)

// HandlerError wraps an error returned by a handler with the dispatch it
// happened in.
type HandlerError struct {
	// Action is the action being dispatched.
	Action string

	// Handler is the name of the failing handler.
	Handler string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "dispatcher: handler " + e.Handler + " for action " + e.Action + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// wrapHandlerError attaches dispatch context unless an inner handler already did.
func wrapHandlerError(action, name string, err error) error {
	var he *HandlerError
	if errors.As(err, &he) {
		return err
	}
	return &HandlerError{Action: action, Handler: name, Err: err}
}
