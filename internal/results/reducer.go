// Package results collects reporter output into a snapshot after every dispatch.
package results

import (
	"fmt"
	"sync"

	"github.com/dshills/bly/internal/logging"
)

// ReportFunc writes one key/value pair into the snapshot being built.
type ReportFunc func(key string, value any) error

// Reporter contributes values to a snapshot through report.
type Reporter func(report ReportFunc) error

// Reducer runs the registered reporters and keeps the latest snapshot.
type Reducer struct {
	mu        sync.RWMutex
	reporters []Reporter
	latest    Snapshot
	log       *logging.Logger
}

// NewReducer creates an empty reducer.
func NewReducer(log *logging.Logger) *Reducer {
	if log == nil {
		log = logging.Nop()
	}
	return &Reducer{
		latest: NewSnapshot(nil),
		log:    log.WithComponent("results"),
	}
}

// Add registers a reporter. Reporters run in the order they were added.
func (r *Reducer) Add(rep Reporter) error {
	if rep == nil {
		return fmt.Errorf("%w: reporter must be a function", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporters = append(r.reporters, rep)
	return nil
}

// Len returns the number of registered reporters.
func (r *Reducer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reporters)
}

// Latest returns the most recent snapshot.
func (r *Reducer) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Reduce builds a fresh snapshot from every reporter and stores it as the
// latest one. The first failing reporter stops the pass; values reported
// before the failure are kept in the returned snapshot.
func (r *Reducer) Reduce() (Snapshot, error) {
	r.mu.RLock()
	reporters := make([]Reporter, len(r.reporters))
	copy(reporters, r.reporters)
	r.mu.RUnlock()

	values := make(map[string]any)
	var err error
	for i, rep := range reporters {
		if err = runReporter(rep, values); err != nil {
			err = fmt.Errorf("results: reporter %d: %w", i, err)
			r.log.Warn("reporter failed", "reporter", i, "error", err)
			break
		}
	}

	snap := Snapshot{values: values}
	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()

	return snap, err
}

// runReporter calls one reporter with a report function bound to values.
func runReporter(rep Reporter, values map[string]any) error {
	var reportErr error
	closed := false

	report := func(key string, value any) error {
		if closed {
			return ErrReportClosed
		}
		if reportErr != nil {
			return reportErr
		}
		if key == "" {
			reportErr = fmt.Errorf("%w: report key must be a non-empty string", ErrInvalidArgument)
			return reportErr
		}
		values[key] = value
		return nil
	}

	repErr := rep(report)
	closed = true

	if reportErr != nil {
		return reportErr
	}
	return repErr
}
