package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	lua "github.com/yuin/gopher-lua"
)

// Result is the terminal outcome of one bounded execution. Exactly one of
// normal output, error, or the timed-out flag characterizes it.
type Result struct {
	Output   string
	Err      string
	TimedOut bool
}

// Runner executes validated source inside the restricted environment on its
// own goroutine, under a wall-clock timeout and the output cap. The caller
// must have run the Validator first; the runner performs no static checks of
// its own.
type Runner struct {
	policy  Policy
	timeout time.Duration
}

// NewRunner creates a runner for the given policy. A non-positive timeout
// falls back to DefaultTimeout.
func NewRunner(policy Policy, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{policy: policy, timeout: timeout}
}

// Timeout returns the configured wall-clock limit.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run executes source with the supplied simulated inputs. The interpreter
// carries the deadline through its context hook, so when the timeout fires
// the VM unwinds at its next instruction checkpoint instead of running on
// abandoned. Submitted content can never crash the host: every failure mode
// comes back as a Result.
func (r *Runner) Run(ctx context.Context, source string, inputs []string) *Result {
	out := &lockedBuffer{}
	feeder := NewFeeder(inputs, out)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		L, err := newState(r.policy, feeder, out)
		if err != nil {
			done <- err
			return
		}
		defer L.Close()
		L.SetContext(runCtx)
		done <- L.DoString(source)
	}()

	select {
	case err := <-done:
		if err == nil {
			return &Result{Output: capOutput(out.String())}
		}
		if runCtx.Err() != nil {
			return r.timedOut()
		}
		return &Result{Err: runtimeMessage(err)}
	case <-runCtx.Done():
		return r.timedOut()
	}
}

func (r *Runner) timedOut() *Result {
	return &Result{
		TimedOut: true,
		Err:      fmt.Sprintf("execution timed out after %s (possible infinite loop)", r.timeout),
	}
}

// capOutput applies the no-output sentinel and the output cap. Truncation
// counts characters, not bytes, so multi-byte output is never split.
func capOutput(s string) string {
	if s == "" {
		return NoOutputSentinel
	}
	if utf8.RuneCountInString(s) > MaxOutputLen {
		runes := []rune(s)
		return string(runes[:MaxOutputLen]) + TruncationMarker
	}
	return s
}

// runtimeMessage extracts the script-level message from an interpreter
// error, dropping the Go-side wrapping.
func runtimeMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Object.String()
	}
	return err.Error()
}

// lockedBuffer serializes writes from the execution goroutine against reads
// by the supervising goroutine after a timeout.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
