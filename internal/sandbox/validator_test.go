package sandbox

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewValidator(DefaultPolicy())

	tests := []struct {
		name   string
		source string
		wantOK bool
		want   string // substring of the reason when wantOK is false
	}{
		{
			name:   "plain print",
			source: `print("hello")`,
			wantOK: true,
		},
		{
			name:   "arithmetic",
			source: `print(1 + 2)`,
			wantOK: true,
		},
		{
			name:   "permitted module via require",
			source: `local m = require("math") print(m.floor(3.7))`,
			wantOK: true,
		},
		{
			name:   "permitted module as global",
			source: `print(string.upper("abc"))`,
			wantOK: true,
		},
		{
			name:   "functions and loops",
			source: "local function fib(n)\n  if n < 2 then return n end\n  return fib(n-1) + fib(n-2)\nend\nfor i = 1, 10 do print(fib(i)) end",
			wantOK: true,
		},
		{
			name:   "forbidden module",
			source: `require("os")`,
			want:   "module not allowed: os",
		},
		{
			name:   "forbidden module in assignment",
			source: `local io = require("io")`,
			want:   "module not allowed: io",
		},
		{
			name:   "dynamic module name",
			source: `local n = "os" require(n)`,
			want:   "dynamic module name",
		},
		{
			name:   "goto statement",
			source: "for i = 1, 3 do\n  if i == 2 then goto done end\nend\n::done::",
			want:   "statement not allowed: goto",
		},
		{
			name:   "banned function load",
			source: `load("print(1)")()`,
			want:   "function not allowed: load",
		},
		{
			name:   "banned function rawset",
			source: `local t = {} rawset(t, "a", 1)`,
			want:   "function not allowed: rawset",
		},
		{
			name:   "banned function setmetatable",
			source: `setmetatable({}, {})`,
			want:   "function not allowed: setmetatable",
		},
		{
			name:   "banned attribute access",
			source: `local t = {} print(t.__metatable)`,
			want:   "attribute not allowed: __metatable",
		},
		{
			name:   "banned attribute nested",
			source: `local t = {a = {}} t.a.__newindex = print`,
			want:   "attribute not allowed: __newindex",
		},
		{
			name:   "banned method name",
			source: `local t = {} t:__call()`,
			want:   "attribute not allowed: __call",
		},
		{
			name:   "syntax error",
			source: `print(`,
			want:   "syntax error",
		},
		{
			name:   "banned call inside function body",
			source: "local function f()\n  return dofile(\"x.lua\")\nend",
			want:   "function not allowed: dofile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.source)
			if got.OK != tt.wantOK {
				t.Fatalf("Validate() OK = %v, want %v (reason %q)", got.OK, tt.wantOK, got.Reason)
			}
			if !tt.wantOK && !strings.Contains(got.Reason, tt.want) {
				t.Errorf("reason = %q, want substring %q", got.Reason, tt.want)
			}
			if tt.wantOK && got.Reason != "" {
				t.Errorf("reason = %q, want empty on success", got.Reason)
			}
		})
	}
}

func TestValidateFirstViolationWins(t *testing.T) {
	v := NewValidator(DefaultPolicy())

	// Both violations are present; the walk is pre-order depth-first so the
	// earlier node must be the one reported.
	got := v.Validate("require(\"os\")\nload(\"x\")")
	if got.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(got.Reason, "module not allowed: os") {
		t.Errorf("reason = %q, want the first violation (os import)", got.Reason)
	}
}

func TestValidateReasonNamesLine(t *testing.T) {
	v := NewValidator(DefaultPolicy())

	got := v.Validate("print(1)\nprint(2)\nrequire(\"os\")")
	if got.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(got.Reason, "line 3") {
		t.Errorf("reason = %q, want line number 3", got.Reason)
	}
}
