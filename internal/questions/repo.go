package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultCacheTTL matches how often the course sheet realistically changes.
const DefaultCacheTTL = 30 * time.Minute

// Repository serves the catalog with a TTL cache in front of a Source and a
// local JSON snapshot as the fallback when the source is unreachable.
type Repository struct {
	src          Source
	snapshotPath string
	ttl          time.Duration

	mu      sync.Mutex
	cached  []Question
	fetched time.Time
}

// NewRepository wraps src. snapshotPath may be empty to disable the local
// fallback file. A non-positive ttl falls back to DefaultCacheTTL.
func NewRepository(src Source, snapshotPath string, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Repository{src: src, snapshotPath: snapshotPath, ttl: ttl}
}

// List returns the catalog. The second return is true when the result came
// from the in-memory cache rather than a fresh fetch.
func (r *Repository) List(ctx context.Context) ([]Question, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && time.Since(r.fetched) < r.ttl {
		return r.cached, true, nil
	}

	qs, err := r.fetchLocked(ctx)
	if err != nil {
		// Stale cache beats no cache; the snapshot file beats both being empty.
		if r.cached != nil {
			return r.cached, true, nil
		}
		if snap, snapErr := r.loadSnapshot(); snapErr == nil {
			r.cached = snap
			r.fetched = time.Now()
			return snap, false, nil
		}
		return nil, false, err
	}
	return qs, false, nil
}

// Get returns a single question by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Question, error) {
	qs, _, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range qs {
		if qs[i].ID == id {
			return &qs[i], nil
		}
	}
	return nil, fmt.Errorf("question not found: %s", id)
}

// Refresh bypasses the cache and refetches from the source.
func (r *Repository) Refresh(ctx context.Context) ([]Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchLocked(ctx)
}

// CacheAge reports how long ago the cached catalog was fetched.
func (r *Repository) CacheAge() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetched.IsZero() {
		return 0
	}
	return time.Since(r.fetched)
}

func (r *Repository) fetchLocked(ctx context.Context) ([]Question, error) {
	qs, err := r.src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching questions: %w", err)
	}
	r.cached = qs
	r.fetched = time.Now()
	r.saveSnapshot(qs)
	return qs, nil
}

func (r *Repository) loadSnapshot() ([]Question, error) {
	if r.snapshotPath == "" {
		return nil, fmt.Errorf("no snapshot configured")
	}
	data, err := os.ReadFile(r.snapshotPath)
	if err != nil {
		return nil, err
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return qs, nil
}

// saveSnapshot is best-effort; a read-only disk must not fail a fetch.
func (r *Repository) saveSnapshot(qs []Question) {
	if r.snapshotPath == "" {
		return
	}
	data, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(r.snapshotPath, data, 0o644)
}
