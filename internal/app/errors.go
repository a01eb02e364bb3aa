package app

import (
	"errors"
	"strings"

	"github.com/dshills/bly/internal/dispatcher"
)

// Application errors.
var (
	// ErrNotStarted indicates Inject was called before Start.
	ErrNotStarted = errors.New("app: not started")

	// ErrInvalidArgument is shared with the dispatcher so callers need a
	// single errors.Is check for malformed input.
	ErrInvalidArgument = dispatcher.ErrInvalidArgument
)

// OperationError tells which stage of an inject failed: "inject" for the
// dispatch itself, "results" for the reduce pass.
type OperationError struct {
	Op     string
	Action string
	Err    error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, action string, err error) *OperationError {
	return &OperationError{Op: op, Action: action, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Action != "" {
		b.WriteString(" " + e.Action)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
