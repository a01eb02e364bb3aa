package lua

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bly/internal/logging"
	"github.com/dshills/bly/internal/plugin/security"
)

// State wraps gopher-lua with a restricted library set.
//
// gopher-lua's LState is not goroutine-safe. A State must be used from one
// goroutine at a time. Calls may nest: a Go function invoked from Lua can
// call back into the same State.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool

	callTimeout time.Duration
	log         *logging.Logger
	perms       *security.Checker
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallTimeout bounds every top-level call into Lua. Zero disables it.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.callTimeout = d
	}
}

// WithLogger routes Lua print output to log.
func WithLogger(log *logging.Logger) StateOption {
	return func(s *State) {
		s.log = log
	}
}

// WithPermissions sets the capabilities checked by the plugin api. Without
// it the state grants security.Default().
func WithPermissions(c *security.Checker) StateOption {
	return func(s *State) {
		s.perms = c
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.perms == nil {
		s.perms = security.NewChecker("", security.Default()...)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	s.L = L

	openLibraries(L, s.perms.Has(security.CapabilityUnsafe))
	s.installSandbox()
	return s
}

type library struct {
	name string
	fn   lua.LGFunction
}

var (
	safeLibraries = []library{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	unsafeLibraries = []library{
		{lua.OsLibName, lua.OpenOs},
		{lua.IoLibName, lua.OpenIo},
	}
)

// openLibraries opens the base, table, string and math libraries, plus os
// and io when unsafe is set. debug and package are never opened.
func openLibraries(L *lua.LState, unsafe bool) {
	libs := safeLibraries
	if unsafe {
		libs = append(append([]library{}, safeLibraries...), unsafeLibraries...)
	}
	for _, lib := range libs {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

func (s *State) installSandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.log.Info(strings.Join(parts, "\t"), "source", "lua")
		return 0
	}))
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	if s.IsClosed() {
		return ErrStateClosed
	}
	return s.guard(func() error { return s.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	if s.IsClosed() {
		return ErrStateClosed
	}
	return s.guard(func() error { return s.L.DoString(code) })
}

// Call invokes fn with args and returns nret results. Lua errors come back
// as Go errors; an error raised with a Go error value is returned as is.
func (s *State) Call(fn lua.LValue, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	if s.IsClosed() {
		return nil, ErrStateClosed
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: got %s", ErrNotFunction, fn.Type())
	}

	var out []lua.LValue
	err := s.guard(func() error {
		if err := s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
			return err
		}
		out = make([]lua.LValue, nret)
		for i := 0; i < nret; i++ {
			out[i] = s.L.Get(-nret + i)
		}
		s.L.Pop(nret)
		return nil
	})
	return out, err
}

// guard applies the call timeout to top-level calls, recovers panics and
// unwraps Go errors raised from Lua.
func (s *State) guard(fn func() error) (err error) {
	if s.callTimeout > 0 && s.L.Context() == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			cancel()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return unwrapError(fn())
}

// Permissions returns the capabilities granted to code in this state.
func (s *State) Permissions() *security.Checker {
	return s.perms
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.IsClosed() {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.IsClosed() {
		return
	}
	s.L.SetGlobal(name, value)
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
