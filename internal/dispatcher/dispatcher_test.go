package dispatcher_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bly/internal/dispatcher"
	"github.com/dshills/bly/internal/dispatcher/handler"
	"github.com/dshills/bly/internal/logging"
)

func noop(handler.WaitFunc, any) error { return nil }

func TestNewWithDefaults(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	require.NotNil(t, d)
	assert.NotNil(t, d.Registry())
	assert.Nil(t, d.Metrics(), "metrics should be nil by default")
	assert.False(t, d.IsDispatching())
}

func TestRegisterAndDispatch(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	payload := map[string]any{"type": "food"}

	calls := 0
	var gotPayload any
	var gotWait handler.WaitFunc
	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, p any) error {
		calls++
		gotPayload = p
		gotWait = waitFor
		return nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", payload))

	assert.Equal(t, 1, calls)
	assert.Equal(t, payload, gotPayload)
	assert.NotNil(t, gotWait)
	assert.False(t, d.IsDispatching())
}

func TestDispatchNilPayloadBecomesEmptyMap(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	var got any
	_, err := d.RegisterFunc("EAT", func(_ handler.WaitFunc, p any) error {
		got = p
		return nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.Equal(t, map[string]any{}, got)
}

func TestRegisterInvalidArguments(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("", noop, "")
	assert.ErrorIs(t, err, dispatcher.ErrInvalidArgument)

	_, err = d.Register("EAT", nil, "")
	assert.ErrorIs(t, err, dispatcher.ErrInvalidArgument)

	var typedNil *handler.HandlerFunc
	_, err = d.Register("EAT", typedNil, "")
	assert.ErrorIs(t, err, dispatcher.ErrInvalidArgument)

	_, err = d.RegisterFunc("EAT", nil, "")
	assert.ErrorIs(t, err, dispatcher.ErrInvalidArgument)
}

func TestRegisterDuplicateName(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("EAT", noop, "chef")
	require.NoError(t, err)

	_, err = d.RegisterFunc("EAT", noop, "chef")
	assert.ErrorIs(t, err, dispatcher.ErrDuplicateHandlerName)

	// The same name under another action is fine.
	name, err := d.RegisterFunc("DRINK", noop, "chef")
	require.NoError(t, err)
	assert.Equal(t, "chef", name)
}

func TestRegisterGeneratesNames(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	first, err := d.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)
	second, err := d.RegisterFunc("DRINK", noop, "")
	require.NoError(t, err)

	assert.Equal(t, "ID_1", first)
	assert.Equal(t, "ID_2", second)
}

func TestGeneratedNamesSkipExplicitNames(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("EAT", noop, "ID_1")
	require.NoError(t, err)

	name, err := d.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)
	assert.Equal(t, "ID_2", name)
	assert.Equal(t, []string{"ID_1", "ID_2"}, d.Handlers("EAT"))
}

func TestGeneratedNamesArePerDispatcher(t *testing.T) {
	a := dispatcher.NewWithDefaults()
	b := dispatcher.New(dispatcher.DefaultConfig().WithIDPrefix("H"))

	nameA, err := a.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)
	nameB, err := b.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)

	assert.Equal(t, "ID_1", nameA)
	assert.Equal(t, "H1", nameB)
}

func TestUnregisterByName(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	name, err := d.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)

	require.NoError(t, d.Unregister("EAT", name))
	assert.ErrorIs(t, d.Dispatch("EAT", nil), dispatcher.ErrNoHandlers)

	assert.ErrorIs(t, d.Unregister("EAT", name), dispatcher.ErrHandlerNotFound)
}

func TestUnregisterByHandler(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	called := false
	h := handler.NewHandlerFunc(func(handler.WaitFunc, any) error {
		called = true
		return nil
	})
	other := handler.NewHandlerFunc(noop)

	_, err := d.Register("EAT", h, "")
	require.NoError(t, err)
	_, err = d.Register("EAT", other, "other")
	require.NoError(t, err)

	require.NoError(t, d.UnregisterHandler("EAT", h))
	assert.Equal(t, []string{"other"}, d.Handlers("EAT"))

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.False(t, called)

	assert.ErrorIs(t, d.UnregisterHandler("EAT", h), dispatcher.ErrHandlerNotFound)
}

func TestUnregisterInvalidArguments(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	assert.ErrorIs(t, d.Unregister("", "x"), dispatcher.ErrInvalidArgument)
	assert.ErrorIs(t, d.Unregister("EAT", ""), dispatcher.ErrInvalidArgument)
	assert.ErrorIs(t, d.UnregisterHandler("EAT", nil), dispatcher.ErrInvalidArgument)
	assert.ErrorIs(t, d.UnregisterHandler("", handler.NewHandlerFunc(noop)), dispatcher.ErrInvalidArgument)
}

func TestDispatchNoHandlers(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	assert.ErrorIs(t, d.Dispatch("unknown", nil), dispatcher.ErrNoHandlers)
}

func TestDispatchRunsHandlersInRegistrationOrder(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	var order []string
	for _, name := range []string{"c", "a", "b"} {
		name := name
		_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
			order = append(order, name)
			return nil
		}, name)
		require.NoError(t, err)
	}

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestDispatchReentrant(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("DRINK", noop, "")
	require.NoError(t, err)

	var inner error
	var dispatching bool
	_, err = d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
		dispatching = d.IsDispatching()
		inner = d.Dispatch("DRINK", nil)
		return nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.True(t, dispatching)
	assert.ErrorIs(t, inner, dispatcher.ErrAlreadyDispatching)
	assert.False(t, d.IsDispatching())

	// The dispatcher is usable again.
	assert.NoError(t, d.Dispatch("DRINK", nil))
}

func TestDispatchConcurrentRejected(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := d.RegisterFunc("SLOW", func(handler.WaitFunc, any) error {
		close(started)
		<-release
		return nil
	}, "")
	require.NoError(t, err)
	_, err = d.RegisterFunc("FAST", noop, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = d.Dispatch("SLOW", nil)
	}()

	<-started
	assert.ErrorIs(t, d.Dispatch("FAST", nil), dispatcher.ErrAlreadyDispatching)
	close(release)
	wg.Wait()

	assert.NoError(t, slowErr)
	assert.NoError(t, d.Dispatch("FAST", nil))
}

func TestWaitForOrdersHandlers(t *testing.T) {
	for _, registerAFirst := range []bool{true, false} {
		d := dispatcher.NewWithDefaults()
		var order []string

		registerA := func() {
			_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
				if err := waitFor("B"); err != nil {
					return err
				}
				order = append(order, "A")
				return nil
			}, "A")
			require.NoError(t, err)
		}
		registerB := func() {
			_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
				order = append(order, "B")
				return nil
			}, "B")
			require.NoError(t, err)
		}

		if registerAFirst {
			registerA()
			registerB()
		} else {
			registerB()
			registerA()
		}

		require.NoError(t, d.Dispatch("EAT", nil))
		assert.Equal(t, []string{"B", "A"}, order, "registerAFirst=%v", registerAFirst)
	}
}

func TestWaitForRunsSharedDependencyOnce(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	counts := map[string]int{}
	var order []string
	record := func(name string) {
		counts[name]++
		order = append(order, name)
	}

	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		if err := waitFor("base", "mid"); err != nil {
			return err
		}
		record("top")
		return nil
	}, "top")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		if err := waitFor("base"); err != nil {
			return err
		}
		record("mid")
		return nil
	}, "mid")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
		record("base")
		return nil
	}, "base")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.Equal(t, []string{"base", "mid", "top"}, order)
	assert.Equal(t, map[string]int{"base": 1, "mid": 1, "top": 1}, counts)
}

func TestWaitForCircularDependency(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	var cycleErr error
	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		return waitFor("two")
	}, "one")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		cycleErr = waitFor("one")
		return cycleErr
	}, "two")
	require.NoError(t, err)

	err = d.Dispatch("EAT", nil)
	assert.ErrorIs(t, cycleErr, dispatcher.ErrCircularDependency)
	assert.ErrorIs(t, err, dispatcher.ErrCircularDependency)

	var he *dispatcher.HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "two", he.Handler)
	assert.Equal(t, "EAT", he.Action)
	assert.False(t, d.IsDispatching())
}

func TestWaitForSelf(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		return waitFor("self")
	}, "self")
	require.NoError(t, err)

	assert.ErrorIs(t, d.Dispatch("EAT", nil), dispatcher.ErrCircularDependency)
}

func TestWaitForUnknownHandler(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	var waitErr error
	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		waitErr = waitFor("does-not-exist")
		return nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.ErrorIs(t, waitErr, dispatcher.ErrUnknownHandler)
}

func TestWaitForOtherActionIsUnknown(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("DRINK", noop, "pour")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		return waitFor("pour")
	}, "")
	require.NoError(t, err)

	assert.ErrorIs(t, d.Dispatch("EAT", nil), dispatcher.ErrUnknownHandler)
}

func TestWaitForOutsideDispatch(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	assert.ErrorIs(t, d.WaitFor("anything"), dispatcher.ErrNotDispatching)

	// A WaitFunc kept past its dispatch is no longer usable.
	var kept handler.WaitFunc
	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		kept = waitFor
		return nil
	}, "")
	require.NoError(t, err)
	require.NoError(t, d.Dispatch("EAT", nil))
	assert.ErrorIs(t, kept("ID_1"), dispatcher.ErrNotDispatching)
}

func TestHandlerErrorClosesSession(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	boom := errors.New("boom")

	ranAfter := false
	_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error { return boom }, "fail")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
		ranAfter = true
		return nil
	}, "after")
	require.NoError(t, err)

	err = d.Dispatch("EAT", nil)
	assert.ErrorIs(t, err, boom)
	var he *dispatcher.HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "fail", he.Handler)
	assert.False(t, ranAfter)
	assert.False(t, d.IsDispatching())
}

func TestDependencyErrorKeepsInnerHandlerName(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	boom := errors.New("boom")

	_, err := d.RegisterFunc("EAT", func(waitFor handler.WaitFunc, _ any) error {
		return waitFor("dep")
	}, "waiter")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", func(handler.WaitFunc, any) error { return boom }, "dep")
	require.NoError(t, err)

	err = d.Dispatch("EAT", nil)
	var he *dispatcher.HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "dep", he.Handler)
	assert.ErrorIs(t, err, boom)
}

func TestHandlerPanicRecovered(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithMetrics())

	_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error { panic("kaboom") }, "")
	require.NoError(t, err)

	err = d.Dispatch("EAT", nil)
	assert.ErrorIs(t, err, dispatcher.ErrHandlerPanic)
	assert.Contains(t, err.Error(), "kaboom")
	assert.False(t, d.IsDispatching())
	assert.Equal(t, uint64(1), d.Metrics().TotalPanics())
}

func TestHandlerPanicWithoutRecovery(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithPanicRecovery(false))

	_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error { panic("kaboom") }, "")
	require.NoError(t, err)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = d.Dispatch("EAT", nil)
	})
	assert.False(t, d.IsDispatching(), "session must be closed after a panic")
}

func TestRegistrationDuringDispatchAffectsNextDispatch(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	lateCalls := 0
	_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
		_, err := d.RegisterFunc("EAT", func(handler.WaitFunc, any) error {
			lateCalls++
			return nil
		}, "late")
		return err
	}, "first")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	assert.Equal(t, 0, lateCalls)

	require.NoError(t, d.Unregister("EAT", "first"))
	require.NoError(t, d.Dispatch("EAT", nil))
	assert.Equal(t, 1, lateCalls)
}

func TestDispatchMetrics(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithMetrics())

	_, err := d.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)
	_, err = d.RegisterFunc("EAT", noop, "")
	require.NoError(t, err)
	_, err = d.RegisterFunc("FAIL", func(handler.WaitFunc, any) error { return errors.New("no") }, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("EAT", nil))
	require.NoError(t, d.Dispatch("EAT", nil))
	require.Error(t, d.Dispatch("FAIL", nil))

	m := d.Metrics()
	assert.Equal(t, uint64(3), m.TotalDispatches())
	assert.Equal(t, uint64(1), m.TotalErrors())
	assert.Equal(t, uint64(4), m.TotalHandlerRuns())

	stats := m.ActionStats("EAT")
	require.NotNil(t, stats)
	assert.Equal(t, uint64(2), stats.DispatchCount)
	assert.Equal(t, uint64(4), stats.HandlerRuns)

	fail := m.ActionStats("FAIL")
	require.NotNil(t, fail)
	assert.Equal(t, float64(100), fail.ErrorRate())
	assert.Contains(t, fail.LastError, "no")
}

func TestActions(t *testing.T) {
	d := dispatcher.NewWithDefaults()

	_, err := d.RegisterFunc("b", noop, "")
	require.NoError(t, err)
	_, err = d.RegisterFunc("a", noop, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, d.Actions())
}

func TestIndependentDispatchers(t *testing.T) {
	a := dispatcher.NewWithDefaults()
	b := dispatcher.NewWithDefaults()

	var innerErr error
	_, err := b.RegisterFunc("PING", noop, "")
	require.NoError(t, err)
	_, err = a.RegisterFunc("PING", func(handler.WaitFunc, any) error {
		innerErr = b.Dispatch("PING", nil)
		return nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, a.Dispatch("PING", nil))
	assert.NoError(t, innerErr, "sessions of separate dispatchers do not interfere")
}

func TestSlowDispatchWarning(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "warn", Format: logging.FormatJSON, Output: &buf})
	d := dispatcher.New(dispatcher.DefaultConfig().
		WithSlowThreshold(time.Millisecond).
		WithLogger(log))

	_, err := d.RegisterFunc("NAP", func(handler.WaitFunc, any) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}, "")
	require.NoError(t, err)
	_, err = d.RegisterFunc("BLINK", noop, "")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch("BLINK", nil))
	assert.Empty(t, buf.String())

	require.NoError(t, d.Dispatch("NAP", nil))
	assert.Contains(t, buf.String(), "slow dispatch")
	assert.Contains(t, buf.String(), `"action":"NAP"`)
}
