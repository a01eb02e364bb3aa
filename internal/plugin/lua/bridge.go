package lua

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bly/internal/results"
)

// errorTypeName names the metatable of Go errors raised into Lua.
const errorTypeName = "bly.error"

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value. Integral numbers become
// int64, sequences become []any and other tables map[string]any.
// Functions convert to nil.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	maxN, count := 0, 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case error:
		return lua.LString(val.Error())
	case results.Snapshot:
		return b.mapToTable(val.Map())
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, e := range val {
			t.RawSetInt(i+1, b.ToLuaValue(e))
		}
		return t
	case map[string]any:
		return b.mapToTable(val)
	default:
		return b.reflectToLua(v)
	}
}

func (b *Bridge) mapToTable(m map[string]any) *lua.LTable {
	t := b.L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, b.ToLuaValue(v))
	}
	return t
}

func (b *Bridge) reflectToLua(v any) lua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.ToLuaValue(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t

	case reflect.Map:
		t := b.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.ToLuaValue(iter.Key().Interface()), b.ToLuaValue(iter.Value().Interface()))
		}
		return t

	case reflect.Struct:
		return b.structToTable(rv)

	default:
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// structToTable converts exported fields, named by their json tag when set.
func (b *Bridge) structToTable(rv reflect.Value) *lua.LTable {
	t := b.L.NewTable()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}

		t.RawSetString(name, b.ToLuaValue(rv.Field(i).Interface()))
	}

	return t
}

// TableString gets a string field from a Lua table.
func TableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// TableFunc gets a function field from a Lua table.
func TableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	f, ok := t.RawGetString(key).(*lua.LFunction)
	return f, ok
}

// raise throws err into Lua. The error survives a round trip through Lua
// code and comes back out of State.Call unchanged.
func raise(L *lua.LState, err error) {
	mt := L.NewTypeMetatable(errorTypeName)
	if mt.RawGetString("__tostring") == lua.LNil {
		L.SetField(mt, "__tostring", L.NewFunction(errorToString))
	}
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, mt)
	L.Error(ud, 1)
}

func errorToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if err, ok := ud.Value.(error); ok {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LString(errorTypeName))
	return 1
}

// unwrapError converts an error returned by gopher-lua into the Go error
// that was raised, or a ScriptError for errors raised by Lua code.
func unwrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if inner, ok := ud.Value.(error); ok {
			return inner
		}
	}
	msg := ""
	if apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	return &ScriptError{Message: msg, StackTrace: apiErr.StackTrace, Cause: apiErr.Cause}
}

// ScriptError is an error raised by Lua code.
type ScriptError struct {
	Message    string
	StackTrace string
	Cause      error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua: %s", e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}
