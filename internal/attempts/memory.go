package attempts

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFull is returned by Increment when the table is at MaxEntries and every
// tracked identifier is currently locked out.
var ErrFull = errors.New("attempt table full")

// MemoryConfig tunes a MemoryStore.
type MemoryConfig struct {
	// Retention drops counters whose first failure is older than this.
	Retention time.Duration
	// MaxEntries caps the table; 0 means unbounded. When full, a counter that
	// can no longer lock is evicted first, then the shortest streak. Counters
	// that are locked out are never evicted.
	MaxEntries int
	// Threshold and Window mirror the lockout policy so eviction can tell a
	// locked counter from one that is only counting.
	Threshold int
	Window    time.Duration
	// SweepInterval is the minimum gap between two full sweeps.
	SweepInterval time.Duration
	// Now overrides the clock used for retention checks.
	Now func() time.Time
}

// MemoryStore keeps counters in a mutex-guarded map. It suits single-instance
// deployments; counters vanish on restart.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]Counter
	cfg       MemoryConfig
	lastSweep time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]Counter),
		cfg:     cfg,
	}
}

// Get returns the counter for identifier, if one is retained.
func (s *MemoryStore) Get(ctx context.Context, identifier string) (Counter, bool, error) {
	if err := ctx.Err(); err != nil {
		return Counter{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[identifier]
	if !ok {
		return Counter{}, false, nil
	}
	if s.expired(c, s.cfg.Now()) {
		delete(s.entries, identifier)
		return Counter{}, false, nil
	}
	return c, true, nil
}

// Increment starts a streak at now or extends the existing one.
func (s *MemoryStore) Increment(ctx context.Context, identifier string, now time.Time) (Counter, error) {
	if err := ctx.Err(); err != nil {
		return Counter{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(s.cfg.Now())

	c, ok := s.entries[identifier]
	if ok && s.expired(c, s.cfg.Now()) {
		ok = false
	}
	if !ok {
		delete(s.entries, identifier)
		if s.cfg.MaxEntries > 0 && len(s.entries) >= s.cfg.MaxEntries && !s.evictOne(now) {
			return Counter{}, ErrFull
		}
		c = Counter{FirstFailureAt: now}
	}
	c.Count++
	s.entries[identifier] = c
	return c, nil
}

// Clear removes the counter for identifier. Clearing a missing counter is not
// an error.
func (s *MemoryStore) Clear(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, identifier)
	s.mu.Unlock()
	return nil
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) expired(c Counter, now time.Time) bool {
	return now.Sub(c.FirstFailureAt) >= s.cfg.Retention
}

// maybeSweep must be called with mu held.
func (s *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.cfg.SweepInterval {
		return
	}
	s.lastSweep = now
	for id, c := range s.entries {
		if s.expired(c, now) {
			delete(s.entries, id)
		}
	}
}

// evictOne must be called with mu held. It reports whether a slot was freed.
func (s *MemoryStore) evictOne(now time.Time) bool {
	var (
		victim string
		weak   Counter
		found  bool
	)
	for id, c := range s.entries {
		if s.expired(c, now) || s.spent(c, now) {
			delete(s.entries, id)
			return true
		}
		if s.locked(c, now) {
			continue
		}
		if !found || c.Count < weak.Count ||
			(c.Count == weak.Count && c.FirstFailureAt.Before(weak.FirstFailureAt)) {
			victim, weak, found = id, c, true
		}
	}
	if found {
		delete(s.entries, victim)
	}
	return found
}

// spent reports whether c's window has elapsed, after which it can never
// lock again.
func (s *MemoryStore) spent(c Counter, now time.Time) bool {
	return s.cfg.Window > 0 && now.Sub(c.FirstFailureAt) >= s.cfg.Window
}

func (s *MemoryStore) locked(c Counter, now time.Time) bool {
	return s.cfg.Threshold > 0 && c.LockedAt(now, s.cfg.Threshold, s.cfg.Window)
}
