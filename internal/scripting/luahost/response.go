package luahost

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/MahdiBaghbani/fetchgate-go/internal/fetch"
)

const responseTypeName = "fetch.Response"

var responseMethods = map[string]lua.LGFunction{
	"header":  responseHeader,
	"headers": responseHeaders,
	"text":    responseText,
	"json":    responseJSON,
	"close":   responseClose,
}

func registerResponseType(L *lua.LState) {
	mt := L.NewTypeMetatable(responseTypeName)
	L.SetField(mt, "__index", L.NewFunction(responseIndex))
	L.SetField(mt, "__tostring", L.NewFunction(responseString))
}

func pushResponse(L *lua.LState, resp *fetch.Response) {
	ud := L.NewUserData()
	ud.Value = resp
	L.SetMetatable(ud, L.GetTypeMetatable(responseTypeName))
	L.Push(ud)
}

func checkResponse(L *lua.LState) *fetch.Response {
	ud := L.CheckUserData(1)
	if resp, ok := ud.Value.(*fetch.Response); ok {
		return resp
	}
	L.ArgError(1, "response expected")
	return nil
}

// responseIndex serves the read-only fields and the method table.
func responseIndex(L *lua.LState) int {
	resp := checkResponse(L)
	key := L.CheckString(2)
	switch key {
	case "status":
		L.Push(lua.LNumber(resp.Status()))
	case "status_text":
		L.Push(lua.LString(resp.StatusText()))
	case "ok":
		L.Push(lua.LBool(resp.OK()))
	case "method":
		L.Push(lua.LString(resp.Method()))
	case "url":
		L.Push(lua.LString(resp.URL()))
	case "elapsed_ms":
		L.Push(lua.LNumber(float64(resp.Elapsed().Microseconds()) / 1000))
	default:
		fn, ok := responseMethods[key]
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(L.NewFunction(fn))
	}
	return 1
}

func responseString(L *lua.LState) int {
	resp := checkResponse(L)
	L.Push(lua.LString(fmt.Sprintf("Response %d %s", resp.Status(), resp.StatusText())))
	return 1
}

// resp:header(name) returns all values joined by ", ", or nil.
func responseHeader(L *lua.LState) int {
	resp := checkResponse(L)
	values := resp.Header().Values(L.CheckString(2))
	if len(values) == 0 {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(strings.Join(values, ", ")))
	return 1
}

// resp:headers() returns a table keyed by lower-case header name.
func responseHeaders(L *lua.LState) int {
	resp := checkResponse(L)
	h := resp.Header()
	tb := L.CreateTable(0, len(h))
	for name, values := range h {
		tb.RawSetString(strings.ToLower(name), lua.LString(strings.Join(values, ", ")))
	}
	L.Push(tb)
	return 1
}

func responseText(L *lua.LState) int {
	resp := checkResponse(L)
	text, err := resp.Text()
	if err != nil {
		L.RaiseError("read body: %v", err)
		return 0
	}
	L.Push(lua.LString(text))
	return 1
}

func responseJSON(L *lua.LState) int {
	resp := checkResponse(L)
	var v any
	if err := resp.JSON(&v); err != nil {
		L.RaiseError("decode json body: %v", err)
		return 0
	}
	L.Push(toLua(L, v))
	return 1
}

func responseClose(L *lua.LState) int {
	resp := checkResponse(L)
	if err := resp.Close(); err != nil {
		L.RaiseError("close body: %v", err)
	}
	return 0
}
