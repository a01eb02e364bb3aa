package results

import "errors"

// Results errors.
var (
	// ErrInvalidArgument indicates a nil reporter or an empty report key.
	ErrInvalidArgument = errors.New("results: invalid argument")

	// ErrReportClosed indicates a report function was used after its reporter returned.
	ErrReportClosed = errors.New("results: report called after reporter returned")
)
