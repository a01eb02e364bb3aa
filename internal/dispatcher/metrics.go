package dispatcher

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	// Per-action metrics
	actionMetrics map[string]*ActionMetrics

	// Global counters
	totalDispatches uint64
	totalErrors     uint64
	totalPanics     uint64
	totalHandlers   uint64

	totalDuration time.Duration

	latency       *LatencyTracker
	actionLatency map[string]*LatencyTracker
}

// ActionMetrics holds metrics for a specific action.
type ActionMetrics struct {
	Name          string
	DispatchCount uint64
	ErrorCount    uint64
	HandlerRuns   uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastError     string
	LastDispatch  time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		actionMetrics: make(map[string]*ActionMetrics),
		latency:       NewLatencyTracker(),
		actionLatency: make(map[string]*LatencyTracker),
	}
}

// RecordDispatch records one finished dispatch.
func (m *Metrics) RecordDispatch(action string, duration time.Duration, handlersRun int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	m.totalDuration += duration
	m.totalHandlers += uint64(handlersRun)

	am := m.actionMetrics[action]
	if am == nil {
		am = &ActionMetrics{
			Name:        action,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.actionMetrics[action] = am
	}

	am.DispatchCount++
	am.HandlerRuns += uint64(handlersRun)
	am.TotalDuration += duration
	am.LastDispatch = time.Now()

	m.latency.Record(duration)
	lt := m.actionLatency[action]
	if lt == nil {
		lt = NewLatencyTracker()
		m.actionLatency[action] = lt
	}
	lt.Record(duration)

	if duration < am.MinDuration {
		am.MinDuration = duration
	}
	if duration > am.MaxDuration {
		am.MaxDuration = duration
	}

	if err != nil {
		m.totalErrors++
		am.ErrorCount++
		am.LastError = err.Error()
	}
}

// RecordPanic records a recovered handler panic.
func (m *Metrics) RecordPanic(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
}

// TotalDispatches returns the total number of dispatches.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalErrors returns the number of dispatches that failed.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalPanics returns the total number of panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// TotalHandlerRuns returns how many handler invocations completed.
func (m *Metrics) TotalHandlerRuns() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalHandlers
}

// AverageDuration returns the average dispatch duration.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.totalDispatches == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalDispatches)
}

// ActionStats returns a copy of the metrics for one action, or nil.
func (m *Metrics) ActionStats(action string) *ActionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	am := m.actionMetrics[action]
	if am == nil {
		return nil
	}
	c := *am
	return &c
}

// TopActions returns the top N most dispatched actions.
func (m *Metrics) TopActions(n int) []*ActionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actions := make([]*ActionMetrics, 0, len(m.actionMetrics))
	for _, am := range m.actionMetrics {
		c := *am
		actions = append(actions, &c)
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].DispatchCount != actions[j].DispatchCount {
			return actions[i].DispatchCount > actions[j].DispatchCount
		}
		return actions[i].Name < actions[j].Name
	})

	if n > len(actions) {
		n = len(actions)
	}
	return actions[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actionMetrics = make(map[string]*ActionMetrics)
	m.totalDispatches = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalHandlers = 0
	m.totalDuration = 0
	m.latency.Reset()
	m.actionLatency = make(map[string]*LatencyTracker)
}

// Latency returns latency statistics across all dispatches.
func (m *Metrics) Latency() LatencyStats {
	return m.latency.Stats()
}

// ActionLatency returns latency statistics for one action.
func (m *Metrics) ActionLatency(action string) (LatencyStats, bool) {
	m.mu.RLock()
	lt := m.actionLatency[action]
	m.mu.RUnlock()

	if lt == nil {
		return LatencyStats{}, false
	}
	return lt.Stats(), true
}

// MetricsSnapshot is a point-in-time copy of the global counters.
type MetricsSnapshot struct {
	TotalDispatches uint64
	TotalErrors     uint64
	TotalPanics     uint64
	TotalHandlers   uint64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	ActionCount     int
	Timestamp       time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		TotalDispatches: m.totalDispatches,
		TotalErrors:     m.totalErrors,
		TotalPanics:     m.totalPanics,
		TotalHandlers:   m.totalHandlers,
		TotalDuration:   m.totalDuration,
		ActionCount:     len(m.actionMetrics),
		Timestamp:       time.Now(),
	}

	if m.totalDispatches > 0 {
		snapshot.AverageDuration = m.totalDuration / time.Duration(m.totalDispatches)
	}

	return snapshot
}

// AverageActionDuration returns the average duration for the action.
func (am *ActionMetrics) AverageActionDuration() time.Duration {
	if am.DispatchCount == 0 {
		return 0
	}
	return am.TotalDuration / time.Duration(am.DispatchCount)
}

// ErrorRate returns the error rate as a percentage.
func (am *ActionMetrics) ErrorRate() float64 {
	if am.DispatchCount == 0 {
		return 0
	}
	return float64(am.ErrorCount) / float64(am.DispatchCount) * 100
}
