package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bly/internal/dispatcher/hook"
)

func TestSessionLogsOneComponentKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("BLY_AUDIT", "true")

	var logs bytes.Buffer
	flags := globalFlags{LogLevel: "debug", LogFormat: "json"}
	plugins := pluginFlags{Files: []string{writePlugin(t)}}
	s, err := newSession(&flags, &plugins, &logs)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.app.InjectName("increment", nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if line == "" {
			continue
		}
		assert.LessOrEqual(t, strings.Count(line, `"component":`), 1, line)
		for _, c := range []string{"dispatcher", "plugin", "audit"} {
			if strings.Contains(line, `"component":"`+c+`"`) {
				seen[c] = true
			}
		}
	}
	assert.True(t, seen["dispatcher"], "no dispatcher log line")
	assert.True(t, seen["audit"], "no audit log line")
}

func TestSessionHistory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	plugins := pluginFlags{Files: []string{writePlugin(t)}}

	t.Setenv("BLY_HISTORY", "2")
	s, err := newSession(&globalFlags{LogLevel: "error"}, &plugins, &bytes.Buffer{})
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.history)
	assert.Contains(t, s.app.Hooks().PostHookNames(), "history")

	for range 3 {
		_, err = s.app.InjectName("increment", nil)
		require.NoError(t, err)
	}
	recent := s.history.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "increment", recent[1].Action)

	t.Setenv("BLY_HISTORY", "0")
	off, err := newSession(&globalFlags{LogLevel: "error"}, &plugins, &bytes.Buffer{})
	require.NoError(t, err)
	defer off.Close()
	assert.Nil(t, off.history)
	assert.NotContains(t, off.app.Hooks().PostHookNames(), "history")
}

func TestSessionOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	plugins := pluginFlags{}

	s, err := newSession(&globalFlags{LogLevel: "error"}, &plugins, &bytes.Buffer{})
	require.NoError(t, err)
	defer s.Close()
	assert.Nil(t, s.app.Dispatcher().Metrics())

	m, err := newSession(&globalFlags{LogLevel: "error"}, &plugins, &bytes.Buffer{}, withMetrics)
	require.NoError(t, err)
	defer m.Close()
	assert.NotNil(t, m.app.Dispatcher().Metrics())
}

func TestWriteStats(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	plugins := pluginFlags{Files: []string{writePlugin(t)}}
	s, err := newSession(&globalFlags{LogLevel: "error"}, &plugins, &bytes.Buffer{}, withMetrics)
	require.NoError(t, err)
	defer s.Close()

	timing := hook.NewTimingHook(nil)
	s.app.Hooks().Register(timing)
	for range 3 {
		_, err = s.app.InjectName("increment", nil)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, s.app.Dispatcher().Metrics(), timing))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "dispatches 3")
	assert.Contains(t, lines[0], "errors 0")
	assert.Contains(t, lines[1], "p95")
	assert.Equal(t, []string{"ACTION", "COUNT", "ERRORS", "P50", "P95", "P99", "MAX", "END-TO-END"}, strings.Fields(lines[3]))
	fields := strings.Fields(lines[4])
	require.Len(t, fields, 8)
	assert.Equal(t, []string{"increment", "3", "0"}, fields[:3])

	out.Reset()
	assert.NoError(t, writeStats(&out, nil, nil))
	assert.Empty(t, out.String())
}
