// Package luahost exposes the fetch primitive to Lua scripts.
//
// Scripts call the global fetch(resource [, init]) and get back a response
// object, or a raised error whose message starts with the failure kind
// ("access error: ...", "transport error: ...").
package luahost

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/MahdiBaghbani/fetchgate-go/internal/fetch"
)

// GlobalName is the name fetch is registered under.
const GlobalName = "fetch"

// libraries opened in every state. io, os, package and debug stay closed:
// scripts reach the outside world through fetch only.
var libraries = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

// closedBuiltins are base library functions that read files or load modules.
var closedBuiltins = []string{"dofile", "loadfile", "require", "module"}

// NewState returns a Lua state with the safe standard libraries open.
func NewState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range libraries {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range closedBuiltins {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Session tracks the responses handed to one Lua state. Lua has no
// finalizers, so bodies a script never reads are released by Close.
type Session struct {
	mu        sync.Mutex
	responses []*fetch.Response
}

func (s *Session) track(resp *fetch.Response) {
	s.mu.Lock()
	s.responses = append(s.responses, resp)
	s.mu.Unlock()
}

// Open returns how many responses are tracked and not yet released by Close.
func (s *Session) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses)
}

// Close releases every response the state received. Responses already read
// or closed by the script are unaffected.
func (s *Session) Close() error {
	s.mu.Lock()
	responses := s.responses
	s.responses = nil
	s.mu.Unlock()

	var first error
	for _, resp := range responses {
		if err := resp.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Register installs the global fetch function backed by f. The caller
// closes the returned Session when it is done with L.
func Register(L *lua.LState, f *fetch.Fetcher) *Session {
	session := &Session{}
	registerResponseType(L)
	L.SetGlobal(GlobalName, L.NewFunction(func(L *lua.LState) int {
		res := toResource(L.Get(1))
		var init fetch.Object
		if tb, ok := L.Get(2).(*lua.LTable); ok {
			init = tableToObject(tb)
		}

		ctx := L.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		resp, err := f.Fetch(ctx, res, init)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		session.track(resp)
		pushResponse(L, resp)
		return 1
	}))
	return session
}

// Run executes source in a fresh state bound to ctx. name labels the chunk
// in error messages.
func Run(ctx context.Context, f *fetch.Fetcher, name, source string) error {
	L := NewState()
	defer L.Close()
	L.SetContext(ctx)
	session := Register(L, f)
	defer session.Close()

	fn, err := L.Load(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// RunFile reads a script from disk and runs it.
func RunFile(ctx context.Context, f *fetch.Fetcher, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return Run(ctx, f, path, string(data))
}
