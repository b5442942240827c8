package luahost

import (
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/MahdiBaghbani/fetchgate-go/internal/fetch"
)

// toResource maps the first fetch argument onto the resolver's tagged union.
func toResource(lv lua.LValue) fetch.Resource {
	switch v := lv.(type) {
	case lua.LString:
		return fetch.URL(string(v))
	case *lua.LTable:
		return tableToObject(v)
	default:
		return nil
	}
}

// tableToObject reads the string-keyed fields of tb. Other keys are dropped.
func tableToObject(tb *lua.LTable) fetch.Object {
	obj := fetch.Object{}
	seen := map[*lua.LTable]bool{tb: true}
	tb.ForEach(func(k, v lua.LValue) {
		if key, ok := k.(lua.LString); ok {
			obj[string(key)] = toGo(v, seen)
		}
	})
	return obj
}

// toGo converts a Lua value into the plain Go values the fetch collaborators
// accept. Sequences become []any, other tables map[string]any. Functions,
// userdata and cyclic tables are passed through unconverted so the consuming
// collaborator reports them.
func toGo(lv lua.LValue, seen map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return v
		}
		seen[v] = true
		defer delete(seen, v)

		if n := v.MaxN(); n > 0 && countKeys(v) == n {
			list := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				list = append(list, toGo(v.RawGetInt(i), seen))
			}
			return list
		}
		if countKeys(v) == 0 {
			return []any{}
		}
		m := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			m[k.String()] = toGo(val, seen)
		})
		return m
	default:
		return lv
	}
}

func countKeys(tb *lua.LTable) int {
	n := 0
	tb.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

// toLua converts decoded JSON into Lua values.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tb := L.CreateTable(len(val), 0)
		for _, item := range val {
			tb.Append(toLua(L, item))
		}
		return tb
	case map[string]any:
		tb := L.CreateTable(0, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tb.RawSetString(k, toLua(L, val[k]))
		}
		return tb
	default:
		return lua.LNil
	}
}
