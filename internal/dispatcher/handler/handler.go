// Package handler provides the handler interface and types for action dispatch.
package handler

import (
	"errors"
	"reflect"
)

// ErrNilFunc is returned by a HandlerFunc that wraps no function.
var ErrNilFunc = errors.New("handler: function is nil")

// WaitFunc makes the named handlers of the action being dispatched run
// before the caller continues. It is only valid inside a dispatch.
type WaitFunc func(names ...string) error

// Handler processes one dispatched action.
type Handler interface {
	// Handle receives the dispatch's WaitFunc and the action payload.
	// A non-nil error aborts the dispatch.
	Handle(waitFor WaitFunc, payload any) error
}

// HandlerFunc is a function adapter for the Handler interface.
// It is always used through a pointer so registered handlers can be
// found again by identity.
type HandlerFunc struct {
	fn func(waitFor WaitFunc, payload any) error
}

// NewHandlerFunc creates a HandlerFunc from a function.
func NewHandlerFunc(fn func(waitFor WaitFunc, payload any) error) *HandlerFunc {
	return &HandlerFunc{fn: fn}
}

// Handle implements Handler.
func (f *HandlerFunc) Handle(waitFor WaitFunc, payload any) error {
	if f == nil || f.fn == nil {
		return ErrNilFunc
	}
	return f.fn(waitFor, payload)
}

// IsNil reports whether h is nil or a typed nil pointer.
func IsNil(h Handler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Same reports whether a and b are the same registered handler.
// Comparable handlers use ==; function-typed handlers compare by code pointer.
// Other uncomparable handlers never match.
func Same(a, b Handler) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
