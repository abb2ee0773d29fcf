package sandbox

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// newState assembles the capability-restricted interpreter for one
// execution: only the policy's libraries are opened, every global outside
// the allowlist is pruned, and print/require/read are replaced with guarded
// versions bound to the capture buffer and the input feeder. Nothing
// resolvable from the resulting namespace reaches process or file
// capability (see the residual-risk note on Validator).
func newState(policy Policy, feeder *Feeder, out io.Writer) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage}, // must be first
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("opening %q library: %w", lib.name, err)
		}
	}

	// Capture the permitted module tables before pruning so the guarded
	// require can hand them back.
	modules := make(map[string]lua.LValue, len(policy.Modules))
	for name := range policy.Modules {
		modules[name] = L.GetGlobal(name)
	}

	pruneGlobals(L, policy)

	L.SetGlobal("print", L.NewFunction(printTo(out)))
	L.SetGlobal("require", L.NewFunction(guardedRequire(modules)))
	L.SetGlobal("read", L.NewFunction(readFrom(feeder)))

	// A minimal io table: read is the simulator, write goes to the capture
	// buffer. The native io library is never opened.
	ioTable := L.NewTable()
	L.SetField(ioTable, "read", L.NewFunction(ioReadFrom(feeder)))
	L.SetField(ioTable, "write", L.NewFunction(writeTo(out)))
	L.SetGlobal("io", ioTable)

	return L, nil
}

// pruneGlobals removes every global the policy does not name. The opened
// libraries install more than the allowlist permits (load, dofile, the
// package table, ...); after this pass the namespace holds exactly the
// permitted builtins and module tables.
func pruneGlobals(L *lua.LState, policy Policy) {
	var doomed []lua.LValue
	L.G.Global.ForEach(func(key, _ lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			doomed = append(doomed, key)
			return
		}
		if policy.BuiltinAllowed(string(name)) || policy.ModuleAllowed(string(name)) {
			return
		}
		doomed = append(doomed, key)
	})
	for _, key := range doomed {
		L.G.Global.RawSet(key, lua.LNil)
	}
}

func printTo(out io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return 0
	}
}

func writeTo(out io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			v := L.Get(i)
			switch v.Type() {
			case lua.LTString, lua.LTNumber:
				io.WriteString(out, lua.LVAsString(v))
			default:
				L.ArgError(i, "string expected")
			}
		}
		return 0
	}
}

func guardedRequire(modules map[string]lua.LValue) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		mod, ok := modules[name]
		if !ok {
			L.RaiseError("module not allowed: %s", name)
			return 0
		}
		L.Push(mod)
		return 1
	}
}

// readFrom backs the global read([prompt]) function.
func readFrom(feeder *Feeder) lua.LGFunction {
	return func(L *lua.LState) int {
		prompt := L.OptString(1, "")
		value, err := feeder.Next(prompt)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LString(value))
		return 1
	}
}

// ioReadFrom backs io.read. The "n"/"*n" formats convert the supplied value
// to a number the way the native reader would; every other format returns
// the raw line.
func ioReadFrom(feeder *Feeder) lua.LGFunction {
	return func(L *lua.LState) int {
		format := L.OptString(1, "l")
		value, err := feeder.Next("")
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		switch strings.TrimPrefix(format, "*") {
		case "n":
			n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(n))
		default:
			L.Push(lua.LString(value))
		}
		return 1
	}
}
