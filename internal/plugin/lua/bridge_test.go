package lua

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/bly/internal/results"
)

func newTestBridge(t *testing.T) (*State, *Bridge) {
	t.Helper()
	s := NewState()
	t.Cleanup(func() { s.Close() })
	return s, NewBridge(s.L)
}

func TestBridgeToGoValueScalars(t *testing.T) {
	_, b := newTestBridge(t)

	tests := []struct {
		name string
		in   glua.LValue
		want any
	}{
		{"nil", glua.LNil, nil},
		{"bool", glua.LTrue, true},
		{"integral", glua.LNumber(42), int64(42)},
		{"float", glua.LNumber(1.5), 1.5},
		{"string", glua.LString("hi"), "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.ToGoValue(tt.in))
		})
	}
}

func TestBridgeToGoValueTables(t *testing.T) {
	s, b := newTestBridge(t)

	require.NoError(t, s.DoString(`
		arr = {1, "two", true}
		obj = {name = "x", nested = {n = 2}}
		mixed = {1, 2, key = "v"}
		sparse = {[1] = "a", [3] = "c"}
		empty = {}
		cyc = {}
		cyc.self = cyc
	`))

	assert.Equal(t, []any{int64(1), "two", true}, b.ToGoValue(s.GetGlobal("arr")))
	assert.Equal(t, map[string]any{"name": "x", "nested": map[string]any{"n": int64(2)}}, b.ToGoValue(s.GetGlobal("obj")))
	assert.Equal(t, map[string]any{"1": int64(1), "2": int64(2), "key": "v"}, b.ToGoValue(s.GetGlobal("mixed")))
	assert.Equal(t, map[string]any{"1": "a", "3": "c"}, b.ToGoValue(s.GetGlobal("sparse")))
	assert.Equal(t, map[string]any{}, b.ToGoValue(s.GetGlobal("empty")))
	assert.Equal(t, map[string]any{"self": nil}, b.ToGoValue(s.GetGlobal("cyc")))
}

func TestBridgeToGoValueSharedTableNotCycle(t *testing.T) {
	s, b := newTestBridge(t)

	require.NoError(t, s.DoString(`
		shared = {v = 1}
		both = {a = shared, b = shared}
	`))
	assert.Equal(t, map[string]any{
		"a": map[string]any{"v": int64(1)},
		"b": map[string]any{"v": int64(1)},
	}, b.ToGoValue(s.GetGlobal("both")))
}

func TestBridgeToLuaValue(t *testing.T) {
	_, b := newTestBridge(t)

	assert.Equal(t, glua.LNil, b.ToLuaValue(nil))
	assert.Equal(t, glua.LTrue, b.ToLuaValue(true))
	assert.Equal(t, glua.LNumber(7), b.ToLuaValue(7))
	assert.Equal(t, glua.LNumber(7), b.ToLuaValue(uint16(7)))
	assert.Equal(t, glua.LNumber(2.5), b.ToLuaValue(float32(2.5)))
	assert.Equal(t, glua.LString("s"), b.ToLuaValue("s"))
	assert.Equal(t, glua.LString("raw"), b.ToLuaValue([]byte("raw")))
	assert.Equal(t, glua.LString("bad"), b.ToLuaValue(errors.New("bad")))

	var nilPtr *int
	assert.Equal(t, glua.LNil, b.ToLuaValue(nilPtr))
}

func TestBridgeToLuaValueCollections(t *testing.T) {
	_, b := newTestBridge(t)

	arr, ok := b.ToLuaValue([]any{"a", 2}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, glua.LString("a"), arr.RawGetInt(1))

	strs, ok := b.ToLuaValue([]string{"x", "y"}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LString("y"), strs.RawGetInt(2))

	m, ok := b.ToLuaValue(map[string]int{"n": 3}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LNumber(3), m.RawGetString("n"))
}

func TestBridgeToLuaValueStruct(t *testing.T) {
	_, b := newTestBridge(t)

	type item struct {
		Name   string `json:"name,omitempty"`
		Count  int
		hidden bool
	}
	tbl, ok := b.ToLuaValue(&item{Name: "pen", Count: 2, hidden: true}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LString("pen"), tbl.RawGetString("name"))
	assert.Equal(t, glua.LNumber(2), tbl.RawGetString("Count"))
	assert.Equal(t, glua.LNil, tbl.RawGetString("hidden"))
}

func TestBridgeToLuaValueSnapshot(t *testing.T) {
	_, b := newTestBridge(t)

	snap := results.NewSnapshot(map[string]any{"count": 3, "tags": []any{"a"}})
	tbl, ok := b.ToLuaValue(snap).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LNumber(3), tbl.RawGetString("count"))
	assert.IsType(t, &glua.LTable{}, tbl.RawGetString("tags"))
}

func TestBridgeRoundTrip(t *testing.T) {
	_, b := newTestBridge(t)

	in := map[string]any{
		"name":  "order",
		"total": 12.5,
		"qty":   int64(3),
		"items": []any{"a", "b"},
		"meta":  map[string]any{"ok": true},
	}
	assert.Equal(t, in, b.ToGoValue(b.ToLuaValue(in)))
}

func TestTableHelpers(t *testing.T) {
	s, _ := newTestBridge(t)

	require.NoError(t, s.DoString(`t = {name = "n", fn = function() end, num = 1}`))
	tbl := s.GetGlobal("t").(*glua.LTable)

	name, ok := TableString(tbl, "name")
	assert.True(t, ok)
	assert.Equal(t, "n", name)

	_, ok = TableString(tbl, "num")
	assert.False(t, ok)

	_, ok = TableFunc(tbl, "fn")
	assert.True(t, ok)
	_, ok = TableFunc(tbl, "name")
	assert.False(t, ok)
}

func TestUnwrapError(t *testing.T) {
	assert.NoError(t, unwrapError(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, unwrapError(plain))

	err := unwrapError(&glua.ApiError{Object: glua.LString("oops")})
	var se *ScriptError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "lua: oops", err.Error())
}
