package hook

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/bly/internal/logging"
)

// Standard hook priorities.
const (
	PriorityAudit   = 1000 // Runs first
	PriorityTiming  = 900
	PriorityHistory = 500
)

// AuditHook logs every dispatch for debugging and audit trails.
type AuditHook struct {
	log *logging.Logger
}

// NewAuditHook creates an audit hook with the given logger.
func NewAuditHook(log *logging.Logger) *AuditHook {
	return &AuditHook{log: log.WithComponent("audit")}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// Priority implements Hook.
func (h *AuditHook) Priority() int { return PriorityAudit }

// PreDispatch logs the action being dispatched.
func (h *AuditHook) PreDispatch(ev PreDispatchEvent) {
	h.log.Debug("dispatch start", "action", ev.Action)
}

// PostDispatch logs the dispatch outcome.
func (h *AuditHook) PostDispatch(ev DispatchEvent) {
	if ev.Err != nil {
		h.log.Error("dispatch failed",
			"action", ev.Action,
			"duration", ev.Duration,
			"error", ev.Err,
		)
		return
	}
	h.log.Debug("dispatch complete",
		"action", ev.Action,
		"duration", ev.Duration,
		"results", ev.Snapshot.Len(),
	)
}

// TimingStat holds accumulated timings for one action.
type TimingStat struct {
	Action string
	Count  int
	Total  time.Duration
	Max    time.Duration
}

// Average returns the mean dispatch duration.
func (s TimingStat) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// TimingHook accumulates end-to-end dispatch durations per action,
// including the results pass.
type TimingHook struct {
	mu       sync.Mutex
	stats    map[string]*TimingStat
	callback func(action string, duration time.Duration)
}

// NewTimingHook creates a timing hook. The callback is optional.
func NewTimingHook(callback func(action string, duration time.Duration)) *TimingHook {
	return &TimingHook{
		stats:    make(map[string]*TimingStat),
		callback: callback,
	}
}

// Name implements Hook.
func (h *TimingHook) Name() string { return "timing" }

// Priority implements Hook.
func (h *TimingHook) Priority() int { return PriorityTiming }

// PostDispatch records the duration.
func (h *TimingHook) PostDispatch(ev DispatchEvent) {
	h.mu.Lock()
	st, ok := h.stats[ev.Action]
	if !ok {
		st = &TimingStat{Action: ev.Action}
		h.stats[ev.Action] = st
	}
	st.Count++
	st.Total += ev.Duration
	if ev.Duration > st.Max {
		st.Max = ev.Duration
	}
	h.mu.Unlock()

	if h.callback != nil {
		h.callback(ev.Action, ev.Duration)
	}
}

// Stats returns a copy of the accumulated timings sorted by action.
func (h *TimingHook) Stats() []TimingStat {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]TimingStat, 0, len(h.stats))
	for _, st := range h.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// Record is one entry in a HistoryHook.
type Record struct {
	Action string
	Time   time.Time
	Failed bool
}

// HistoryHook keeps a bounded list of recent dispatches.
type HistoryHook struct {
	mu      sync.Mutex
	records []Record
	maxSize int
	now     func() time.Time
}

// NewHistoryHook creates a history hook holding at most maxSize records.
func NewHistoryHook(maxSize int) *HistoryHook {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &HistoryHook{maxSize: maxSize, now: time.Now}
}

// Name implements Hook.
func (h *HistoryHook) Name() string { return "history" }

// Priority implements Hook.
func (h *HistoryHook) Priority() int { return PriorityHistory }

// PostDispatch appends a record, dropping the oldest when full.
func (h *HistoryHook) PostDispatch(ev DispatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, Record{
		Action: ev.Action,
		Time:   h.now(),
		Failed: ev.Err != nil,
	})
	if len(h.records) > h.maxSize {
		h.records = h.records[len(h.records)-h.maxSize:]
	}
}

// Recent returns up to n of the most recent records, oldest first.
func (h *HistoryHook) Recent(n int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]Record, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

// Clear drops all records.
func (h *HistoryHook) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
