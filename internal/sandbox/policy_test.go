package sandbox

import (
	"strings"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	for _, mod := range []string{"math", "string", "table"} {
		if !p.ModuleAllowed(mod) {
			t.Errorf("module %q should be allowed", mod)
		}
	}
	for _, mod := range []string{"os", "io", "debug", "package"} {
		if p.ModuleAllowed(mod) {
			t.Errorf("module %q should not be allowed", mod)
		}
	}

	if !p.BuiltinAllowed("print") {
		t.Error("print should be a permitted builtin")
	}
	for _, fn := range []string{"load", "dofile", "loadstring"} {
		if p.BuiltinAllowed(fn) {
			t.Errorf("builtin %q should not be permitted", fn)
		}
		if _, banned := p.Dangerous.Functions[fn]; !banned {
			t.Errorf("function %q should be banned", fn)
		}
	}
}

func TestCheckLimits(t *testing.T) {
	tests := []struct {
		name   string
		source string
		inputs []string
		want   string // substring of the error; empty means accepted
	}{
		{
			name:   "within bounds",
			source: "print(1)",
			inputs: []string{"a", "b"},
		},
		{
			name:   "source at limit",
			source: strings.Repeat("x", MaxSourceLen),
		},
		{
			name:   "source over limit",
			source: strings.Repeat("x", MaxSourceLen+1),
			want:   "source too long",
		},
		{
			// Multi-byte runes count as one character, not three bytes.
			name:   "multibyte source at limit",
			source: strings.Repeat("好", MaxSourceLen),
		},
		{
			name:   "multibyte source over limit",
			source: strings.Repeat("好", MaxSourceLen+1),
			want:   "source too long",
		},
		{
			name:   "multibyte input at limit",
			source: "print(1)",
			inputs: []string{strings.Repeat("好", MaxInputLen)},
		},
		{
			name:   "too many inputs",
			source: "print(1)",
			inputs: make([]string, MaxInputs+1),
			want:   "too many inputs",
		},
		{
			name:   "single input too long",
			source: "print(1)",
			inputs: []string{strings.Repeat("y", MaxInputLen+1)},
			want:   "input 1 too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLimits(tt.source, tt.inputs)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("CheckLimits: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}
