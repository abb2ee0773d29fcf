// Package keypool rotates access to a fixed list of external-service API
// keys. The index and its lock live behind this type; callers only ever see
// Acquire and AcquireWithRetry.
package keypool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNoKeys means the pool was configured with no usable keys.
	ErrNoKeys = errors.New("no API keys configured")
	// ErrExhausted means every attempted key failed its probe.
	ErrExhausted = errors.New("all API keys exhausted")
)

// Pool is a thread-safe round-robin key dispenser. The key list is fixed at
// construction; only the cursor advances.
type Pool struct {
	mu   sync.Mutex
	keys []string
	next int
}

// New creates a pool from keys, dropping blank entries.
func New(keys []string) *Pool {
	p := &Pool{}
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Len returns the number of usable keys.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Acquire returns the next key in rotation.
func (p *Pool) Acquire() (string, error) {
	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.next]
	p.next = (p.next + 1) % len(p.keys)
	return key, nil
}

// AcquireWithRetry tries up to maxAttempts distinct keys, wrapping around
// the list, and returns the first one whose probe succeeds. A nil probe
// accepts the first key. A non-positive or oversized maxAttempts tries
// every key once.
func (p *Pool) AcquireWithRetry(ctx context.Context, maxAttempts int, probe func(ctx context.Context, key string) error) (string, error) {
	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}
	if maxAttempts <= 0 || maxAttempts > len(p.keys) {
		maxAttempts = len(p.keys)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		key, err := p.Acquire()
		if err != nil {
			return "", err
		}
		if probe == nil {
			return key, nil
		}
		if err := probe(ctx, key); err == nil {
			return key, nil
		} else {
			lastErr = err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrExhausted, maxAttempts, lastErr)
}
