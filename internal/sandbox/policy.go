package sandbox

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Request limits, enforced before validation ever runs.
const (
	MaxSourceLen = 50000
	MaxInputs    = 100
	MaxInputLen  = 1000
)

// Execution bounds.
const (
	MaxOutputLen   = 10000
	DefaultTimeout = 5 * time.Second
)

const (
	// TruncationMarker is appended when captured output exceeds MaxOutputLen.
	TruncationMarker = "\n...(output truncated)"
	// NoOutputSentinel is returned when a script completes without printing anything.
	NoOutputSentinel = "(program finished with no output)"
)

// Policy is the allowlist registry: the globals a script may resolve, the
// modules it may require, and the constructs the validator rejects outright.
// Policies are fixed at startup and never mutated afterwards.
type Policy struct {
	Builtins  map[string]struct{} // globals that survive environment pruning
	Modules   map[string]struct{} // modules reachable through require
	Dangerous DangerousSet
}

// DangerousSet is the denylist side of the policy: statement kinds, bare
// function names, and attribute names the validator refuses to accept.
type DangerousSet struct {
	Statements map[string]struct{}
	Functions  map[string]struct{}
	Attributes map[string]struct{}
}

// DefaultPolicy returns the safe defaults for student code execution.
func DefaultPolicy() Policy {
	return Policy{
		Builtins: set(
			"assert", "error", "ipairs", "next", "pairs", "pcall", "print",
			"select", "tonumber", "tostring", "type", "unpack", "xpcall",
			"rawequal", "_VERSION",
		),
		Modules: set("math", "string", "table", "coroutine"),
		Dangerous: DangerousSet{
			// goto and labels jump across lexical scopes; disallowed the
			// same way global/nonlocal escapes would be.
			Statements: set("goto", "label"),
			// load/eval family, environment introspection, and raw table
			// access that bypasses metatables.
			Functions: set(
				"dofile", "loadfile", "load", "loadstring",
				"collectgarbage", "getfenv", "setfenv",
				"getmetatable", "setmetatable",
				"rawget", "rawset", "rawlen",
				"module", "newproxy", "_printregs",
			),
			// metatable internals that expose or rewire interpreter state.
			Attributes: set(
				"__index", "__newindex", "__metatable", "__call",
				"__mode", "__gc", "__env", "__fenv",
			),
		},
	}
}

// BuiltinAllowed reports whether a global name survives pruning.
func (p Policy) BuiltinAllowed(name string) bool {
	_, ok := p.Builtins[name]
	return ok
}

// ModuleAllowed reports whether a module may be required.
func (p Policy) ModuleAllowed(name string) bool {
	_, ok := p.Modules[name]
	return ok
}

// CheckLimits enforces the request bounds. It runs before the validator so
// that oversized submissions are rejected without being parsed. The length
// limits count characters, matching how the output cap truncates.
func CheckLimits(source string, inputs []string) error {
	if n := utf8.RuneCountInString(source); n > MaxSourceLen {
		return fmt.Errorf("source too long: %d characters (limit %d)", n, MaxSourceLen)
	}
	if len(inputs) > MaxInputs {
		return fmt.Errorf("too many inputs: %d (limit %d)", len(inputs), MaxInputs)
	}
	for i, in := range inputs {
		if n := utf8.RuneCountInString(in); n > MaxInputLen {
			return fmt.Errorf("input %d too long: %d characters (limit %d)", i+1, n, MaxInputLen)
		}
	}
	return nil
}

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}
