package dispatcher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordDispatch(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch("EAT", 10*time.Millisecond, 2, nil)
	m.RecordDispatch("EAT", 30*time.Millisecond, 2, nil)
	m.RecordDispatch("DRINK", 5*time.Millisecond, 0, errors.New("spilled"))

	assert.Equal(t, uint64(3), m.TotalDispatches())
	assert.Equal(t, uint64(1), m.TotalErrors())
	assert.Equal(t, uint64(4), m.TotalHandlerRuns())
	assert.Equal(t, 15*time.Millisecond, m.AverageDuration())

	eat := m.ActionStats("EAT")
	require.NotNil(t, eat)
	assert.Equal(t, 10*time.Millisecond, eat.MinDuration)
	assert.Equal(t, 30*time.Millisecond, eat.MaxDuration)
	assert.Equal(t, 20*time.Millisecond, eat.AverageActionDuration())
	assert.Zero(t, eat.ErrorRate())

	drink := m.ActionStats("DRINK")
	require.NotNil(t, drink)
	assert.Equal(t, "spilled", drink.LastError)

	assert.Nil(t, m.ActionStats("unknown"))
}

func TestMetricsTopActions(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch("a", time.Millisecond, 1, nil)
	m.RecordDispatch("b", time.Millisecond, 1, nil)
	m.RecordDispatch("b", time.Millisecond, 1, nil)

	top := m.TopActions(5)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Name)
	assert.Equal(t, "a", top[1].Name)

	assert.Len(t, m.TopActions(1), 1)
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch("a", 4*time.Millisecond, 1, nil)
	m.RecordPanic("a")

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalDispatches)
	assert.Equal(t, uint64(1), snap.TotalPanics)
	assert.Equal(t, 1, snap.ActionCount)
	assert.Equal(t, 4*time.Millisecond, snap.AverageDuration)

	m.Reset()
	assert.Equal(t, uint64(0), m.TotalDispatches())
	assert.Zero(t, m.Snapshot().ActionCount)
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch("a", 20*time.Microsecond, 1, nil)
	m.RecordDispatch("a", 40*time.Microsecond, 1, nil)
	m.RecordDispatch("b", 2*time.Millisecond, 1, nil)

	all := m.Latency()
	assert.Equal(t, uint64(3), all.Count)
	assert.Equal(t, 20*time.Microsecond, all.Min)
	assert.Equal(t, 2*time.Millisecond, all.Max)

	a, ok := m.ActionLatency("a")
	require.True(t, ok)
	assert.Equal(t, uint64(2), a.Count)
	assert.Equal(t, 30*time.Microsecond, a.Mean)

	_, ok = m.ActionLatency("missing")
	assert.False(t, ok)

	m.Reset()
	assert.Zero(t, m.Latency().Count)
	_, ok = m.ActionLatency("a")
	assert.False(t, ok)
}

func TestLatencyTrackerStats(t *testing.T) {
	lt := NewLatencyTracker()
	assert.Equal(t, LatencyStats{}, lt.Stats())

	for i := 0; i < 98; i++ {
		lt.Record(5 * time.Microsecond)
	}
	lt.Record(200 * time.Microsecond)
	lt.Record(20 * time.Millisecond)

	s := lt.Stats()
	assert.Equal(t, uint64(100), s.Count)
	assert.Equal(t, uint64(98), s.Histogram[0])
	assert.Equal(t, uint64(1), s.Histogram[3])
	assert.Equal(t, uint64(1), s.Histogram[7])
	assert.Equal(t, 5*time.Microsecond, s.P50)
	assert.Equal(t, 5*time.Microsecond, s.P95)
	assert.Equal(t, 300*time.Microsecond, s.P99)
	assert.Positive(t, s.StdDev)

	lt.Record(-time.Second)
	assert.Zero(t, lt.Stats().Min)

	lt.Reset()
	assert.Zero(t, lt.Stats().Count)
}
