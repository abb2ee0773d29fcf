package keypool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestAcquireRoundRobin(t *testing.T) {
	p := New([]string{"a", "b", "c"})

	var got []string
	for i := 0; i < 5; i++ {
		k, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		got = append(got, k)
	}

	want := []string{"a", "b", "c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestNewFiltersBlankKeys(t *testing.T) {
	p := New([]string{"", "  ", "real"})
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestAcquireEmptyPool(t *testing.T) {
	p := New(nil)
	if _, err := p.Acquire(); !errors.Is(err, ErrNoKeys) {
		t.Fatalf("err = %v, want ErrNoKeys", err)
	}
}

func TestAcquireWithRetrySkipsBadKeys(t *testing.T) {
	p := New([]string{"bad1", "bad2", "good"})

	probe := func(_ context.Context, key string) error {
		if key != "good" {
			return fmt.Errorf("quota exceeded for %s", key)
		}
		return nil
	}

	key, err := p.AcquireWithRetry(context.Background(), 0, probe)
	if err != nil {
		t.Fatalf("AcquireWithRetry: %v", err)
	}
	if key != "good" {
		t.Errorf("key = %q, want %q", key, "good")
	}
}

func TestAcquireWithRetryExhausted(t *testing.T) {
	p := New([]string{"a", "b"})

	probe := func(_ context.Context, key string) error {
		return errors.New("always failing")
	}

	_, err := p.AcquireWithRetry(context.Background(), 5, probe)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestAcquireConcurrent(t *testing.T) {
	p := New([]string{"a", "b", "c"})

	var wg sync.WaitGroup
	counts := make(map[string]int)
	var mu sync.Mutex

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, err := p.Acquire()
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 30 acquisitions over 3 keys must land evenly.
	for k, n := range counts {
		if n != 10 {
			t.Errorf("key %q acquired %d times, want 10", k, n)
		}
	}
}
