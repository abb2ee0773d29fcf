package sandbox

import (
	"bytes"
	"errors"
	"testing"
)

func TestFeederReplaysInOrder(t *testing.T) {
	var out bytes.Buffer
	f := NewFeeder([]string{"alice", "42"}, &out)

	got, err := f.Next("name: ")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != "alice" {
		t.Errorf("first value = %q, want %q", got, "alice")
	}

	got, err = f.Next("")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != "42" {
		t.Errorf("second value = %q, want %q", got, "42")
	}

	// The transcript must read like a live session: prompt, then the echoed
	// value, interleaved at the point of each read.
	want := "name: alice\n42\n"
	if out.String() != want {
		t.Errorf("echo = %q, want %q", out.String(), want)
	}
}

func TestFeederExhaustion(t *testing.T) {
	var out bytes.Buffer
	f := NewFeeder([]string{"only"}, &out)

	if _, err := f.Next(""); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", f.Remaining())
	}

	_, err := f.Next("")
	if !errors.Is(err, ErrNoMoreInput) {
		t.Fatalf("err = %v, want ErrNoMoreInput", err)
	}

	// Exhaustion must be sticky.
	if _, err := f.Next(""); !errors.Is(err, ErrNoMoreInput) {
		t.Fatalf("second read past end = %v, want ErrNoMoreInput", err)
	}
}

func TestFeederEmpty(t *testing.T) {
	var out bytes.Buffer
	f := NewFeeder(nil, &out)

	if _, err := f.Next("prompt: "); !errors.Is(err, ErrNoMoreInput) {
		t.Fatalf("err = %v, want ErrNoMoreInput", err)
	}
	if out.Len() != 0 {
		t.Errorf("failed read must not echo, got %q", out.String())
	}
}
