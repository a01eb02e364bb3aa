// Package hook provides ordered observer lists for dispatch lifecycle points.
//
// A List holds observers for one point. Observers run synchronously on the
// caller's goroutine, higher priority first and then in subscription order.
// Each subscription carries a uuid and returns an Unsubscribe that may be
// called any number of times.
//
// # Lifecycle Points
//
// The Manager owns one List per point:
//
//   - PreStart / PostStart: fired once, on the first start of an app.
//   - PreDispatch: fired before handlers run.
//   - PostDispatch: fired after handlers and the results pass, with the
//     snapshot and the first error, if any.
//
// # Named Hooks
//
// Types implementing PreDispatchHook or PostDispatchHook can be registered
// by name. Registering a second hook with the same name replaces the first.
//
//	m := hook.NewManager()
//	m.Register(hook.NewAuditHook(log))
//	m.Register(hook.NewTimingHook(nil))
//
// Standard priority constants:
//
//	PriorityAudit   = 1000
//	PriorityTiming  = 900
//	PriorityHistory = 500
package hook
