package responder

import (
	"fmt"
	"sync"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

const scriptEntry = "compute"

// Script is a Lua fault-injection hook. The chunk must define a global
//
//	function compute(op, a, b, result) ... end
//
// returning nil to keep result, a number to replace it, or false to drop the request.
// It may also return a table, e.g. {result = 7} or {drop = true}.
type Script struct {
	mu sync.Mutex
	L  *lua.LState
	fn *lua.LFunction
}

// LoadScript runs the Lua file at path and binds its compute function.
func LoadScript(path string) (*Script, error) {
	return load(func(L *lua.LState) error { return L.DoFile(path) }, path)
}

// LoadScriptString is LoadScript for an in-memory chunk.
func LoadScriptString(src string) (*Script, error) {
	return load(func(L *lua.LState) error { return L.DoString(src) }, "<string>")
}

func load(run func(*lua.LState) error, name string) (*Script, error) {
	L := lua.NewState()
	if err := run(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	fn, ok := L.GetGlobal(scriptEntry).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script %s does not define function %s", name, scriptEntry)
	}
	return &Script{L: L, fn: fn}, nil
}

// Compute calls the script. reply is false when the script asks to drop the request.
func (s *Script) Compute(op string, a, b, result int32) (value int32, reply bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.L.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true},
		lua.LString(op), lua.LNumber(a), lua.LNumber(b), lua.LNumber(result))
	if err != nil {
		return 0, false, fmt.Errorf("script %s: %w", scriptEntry, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return result, true, nil
	case lua.LNumber:
		return int32(int64(v)), true, nil
	case lua.LBool:
		if !bool(v) {
			return 0, false, nil
		}
		return result, true, nil
	case *lua.LTable:
		var verdict struct {
			Result *int64
			Drop   bool
		}
		if err := gluamapper.Map(v, &verdict); err != nil {
			return 0, false, fmt.Errorf("script %s: %w", scriptEntry, err)
		}
		if verdict.Drop {
			return 0, false, nil
		}
		if verdict.Result != nil {
			return int32(*verdict.Result), true, nil
		}
		return result, true, nil
	}
	return 0, false, fmt.Errorf("script %s returned %s, want nil, number, false or table", scriptEntry, ret.Type())
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}
