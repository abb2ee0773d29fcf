package sandbox

import (
	"errors"
	"fmt"
	"io"
)

// ErrNoMoreInput is raised when a script reads past the supplied inputs.
var ErrNoMoreInput = errors.New("no more input available")

// Feeder replays a pre-supplied list of strings as answers to interactive
// reads. It owns the cursor for exactly one execution; a transcript replayed
// through it looks identical to a live session because the prompt and the
// value are echoed at the moment the read happens, not afterwards.
type Feeder struct {
	values []string
	cursor int
	out    io.Writer
}

// NewFeeder creates a feeder over values, echoing into out.
func NewFeeder(values []string, out io.Writer) *Feeder {
	return &Feeder{values: values, out: out}
}

// Next returns the next supplied value and advances the cursor. The prompt
// (if non-empty) and the value are written to the output stream in that
// order. Reading past the end returns ErrNoMoreInput.
func (f *Feeder) Next(prompt string) (string, error) {
	if f.cursor >= len(f.values) {
		return "", ErrNoMoreInput
	}
	value := f.values[f.cursor]
	f.cursor++
	if prompt != "" {
		io.WriteString(f.out, prompt)
	}
	fmt.Fprintln(f.out, value)
	return value, nil
}

// Remaining reports how many inputs have not been consumed yet.
func (f *Feeder) Remaining() int {
	return len(f.values) - f.cursor
}
