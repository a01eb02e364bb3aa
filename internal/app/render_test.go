package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/dispatcher/handler"
	"github.com/dshills/bly/internal/results"
)

func TestReporterReachesRender(t *testing.T) {
	a := app.New(app.Options{})
	_, err := a.ActionFunc("A", noop, "")
	require.NoError(t, err)

	require.NoError(t, a.Results(func(report results.ReportFunc) error {
		return report("x", 1)
	}))

	var got []results.Snapshot
	_, err = a.Render(func(s results.Snapshot) { got = append(got, s) })
	require.NoError(t, err)
	assert.Empty(t, got, "not started, no immediate call")

	a.Start()
	_, err = a.InjectName("A", nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"x": 1}, got[0].Map())
	assert.Equal(t, got[0], a.Latest())
}

func TestRenderImmediateCallWhenStarted(t *testing.T) {
	a := newStarted(t)
	calls := 0
	var first results.Snapshot

	_, err := a.Render(func(s results.Snapshot) {
		calls++
		first = s
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, first.Len())
}

func TestRenderUnsubscribeIsIdempotent(t *testing.T) {
	a := newStarted(t)
	_, err := a.ActionFunc("A", noop, "")
	require.NoError(t, err)

	keptCalls, goneCalls := 0, 0
	_, err = a.Render(func(results.Snapshot) { keptCalls++ })
	require.NoError(t, err)
	unsub, err := a.Render(func(results.Snapshot) { goneCalls++ })
	require.NoError(t, err)

	unsub()
	unsub()

	_, err = a.InjectName("A", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, keptCalls)
	assert.Equal(t, 1, goneCalls)
}

func TestRenderAndResultsRejectNil(t *testing.T) {
	a := newStarted(t)
	_, err := a.Render(nil)
	assert.ErrorIs(t, err, app.ErrInvalidArgument)
	assert.ErrorIs(t, a.Results(nil), app.ErrInvalidArgument)
}

func TestReporterFailureKeepsPartialSnapshot(t *testing.T) {
	a := newStarted(t)
	_, err := a.ActionFunc("A", noop, "")
	require.NoError(t, err)

	require.NoError(t, a.Results(func(report results.ReportFunc) error {
		if err := report("kept", true); err != nil {
			return err
		}
		return report("", "bad")
	}))

	var rendered results.Snapshot
	_, err = a.Render(func(s results.Snapshot) { rendered = s })
	require.NoError(t, err)

	_, err = a.InjectName("A", nil)
	assert.ErrorIs(t, err, results.ErrInvalidArgument)

	var opErr *app.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "results", opErr.Op)

	v, ok := rendered.Get("kept")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, rendered, a.Latest())
}

func TestReportersOverwriteInOrder(t *testing.T) {
	a := newStarted(t)
	_, err := a.ActionFunc("A", func(handler.WaitFunc, any) error { return nil }, "")
	require.NoError(t, err)

	require.NoError(t, a.Results(func(report results.ReportFunc) error { return report("k", "first") }))
	require.NoError(t, a.Results(func(report results.ReportFunc) error { return report("k", "second") }))

	_, err = a.InjectName("A", nil)
	require.NoError(t, err)
	v, _ := a.Latest().Get("k")
	assert.Equal(t, "second", v)
}
