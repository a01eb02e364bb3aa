// Package dispatcher delivers actions to named handlers, one dispatch at a time.
//
// # Registry
//
// Handlers are registered against an action name under a handler name that is
// unique within that action. When no name is given a synthetic one ("ID_1",
// "ID_2", ...) is generated from a counter owned by the Dispatcher. Handlers of
// an action run in registration order unless WaitFor says otherwise.
//
// # Dispatch
//
// Dispatch opens a session, runs every handler of the action and closes the
// session again, also when a handler fails or panics. Only one session can be
// open per Dispatcher: calling Dispatch from inside a handler, or from another
// goroutine while a dispatch is running, fails with ErrAlreadyDispatching.
//
// # WaitFor
//
// A handler receives a WaitFunc as its first argument. Calling it with the
// names of other handlers of the same action runs those handlers first:
//
//	d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, payload any) error {
//	    if err := waitFor("cook"); err != nil {
//	        return err
//	    }
//	    // "cook" has finished here
//	    return nil
//	}, "eat")
//
// A handler that already ran is not run again. Waiting on a handler that is
// still running (directly or through a chain of waits) fails with
// ErrCircularDependency; waiting on a name the action does not know fails with
// ErrUnknownHandler.
//
// # Errors
//
// Handler errors abort the dispatch and come back wrapped in *HandlerError,
// which names the action and the failing handler. All sentinel errors can be
// matched with errors.Is.
package dispatcher
