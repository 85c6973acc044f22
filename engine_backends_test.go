package accountgate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/accountgate"
)

var errBackend = errors.New("backend down")

type failingAttempts struct {
	getErr, incErr, clearErr error
	inner                    accountgate.AttemptStore
}

func (f *failingAttempts) Get(ctx context.Context, id string) (accountgate.AttemptCounter, bool, error) {
	if f.getErr != nil {
		return accountgate.AttemptCounter{}, false, f.getErr
	}
	return f.inner.Get(ctx, id)
}

func (f *failingAttempts) Increment(ctx context.Context, id string, now time.Time) (accountgate.AttemptCounter, error) {
	if f.incErr != nil {
		return accountgate.AttemptCounter{}, f.incErr
	}
	return f.inner.Increment(ctx, id, now)
}

func (f *failingAttempts) Clear(ctx context.Context, id string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.inner.Clear(ctx, id)
}

func withAttempts(store accountgate.AttemptStore) func(*accountgate.Builder) {
	return func(b *accountgate.Builder) { b.WithAttemptStore(store) }
}

func TestLoginAttemptStoreReadFailureFailsClosed(t *testing.T) {
	cfg := testConfig()
	store := &failingAttempts{getErr: errBackend, inner: accountgate.NewMemoryAttemptStore(cfg.Lockout)}
	env := newTestEngine(t, cfg, withAttempts(store))

	_, err := env.engine.Login(context.Background(), testIdentity, testSecret)
	if !errors.Is(err, accountgate.ErrAttemptStoreUnavailable) {
		t.Fatalf("expected ErrAttemptStoreUnavailable, got %v", err)
	}
	if errors.Is(err, accountgate.ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials")
	}
	if got := env.engine.MetricsSnapshot().Counters[accountgate.MetricAttemptStoreError]; got != 1 {
		t.Fatalf("expected 1 attempt store error, got %d", got)
	}
}

func TestLoginIncrementFailureStillRejects(t *testing.T) {
	cfg := testConfig()
	store := &failingAttempts{incErr: errBackend, inner: accountgate.NewMemoryAttemptStore(cfg.Lockout)}
	env := newTestEngine(t, cfg, withAttempts(store))

	_, err := env.engine.Login(context.Background(), testIdentity, wrongSecret)
	if !errors.Is(err, accountgate.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

type failingRecords struct {
	accountgate.RecordStore
}

func (failingRecords) FindAccountByIdentifier(context.Context, string) (accountgate.Account, bool, error) {
	return accountgate.Account{}, false, errBackend
}

func (failingRecords) CountRecords(context.Context, accountgate.RecordFilter) (int64, error) {
	return 0, errBackend
}

func TestRecordStoreFailure(t *testing.T) {
	engine, err := accountgate.New().
		WithConfig(testConfig()).
		WithRecordStore(failingRecords{}).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	_, err = engine.Login(ctx, testIdentity, testSecret)
	if !errors.Is(err, accountgate.ErrStoreUnavailable) || !errors.Is(err, errBackend) {
		t.Fatalf("expected wrapped ErrStoreUnavailable, got %v", err)
	}

	_, err = engine.ListAccounts(ctx, accountgate.DefaultListQuery())
	if !errors.Is(err, accountgate.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	if _, err := engine.IdentifierRegistered(ctx, testIdentity); !errors.Is(err, accountgate.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis error: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestLoginWithRedisCounters(t *testing.T) {
	_, rdb := newMiniRedis(t)
	env := newTestEngine(t, testConfig(), func(b *accountgate.Builder) { b.WithRedis(rdb) })
	ctx := context.Background()

	failLogins(t, env.engine, testIdentity, accountgate.DefaultMaxFailedAttempts)
	if _, err := env.engine.Login(ctx, testIdentity, testSecret); !errors.Is(err, accountgate.ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	env.clock.Advance(accountgate.DefaultLockoutWindow)
	if _, err := env.engine.Login(ctx, testIdentity, testSecret); err != nil {
		t.Fatalf("expected success after window, got %v", err)
	}
}

func TestRedisCountersSharedAcrossEngines(t *testing.T) {
	_, rdb := newMiniRedis(t)
	withRedis := func(b *accountgate.Builder) { b.WithRedis(rdb) }
	first := newTestEngine(t, testConfig(), withRedis)
	second := newTestEngine(t, testConfig(), withRedis)

	failLogins(t, first.engine, testIdentity, accountgate.DefaultMaxFailedAttempts)
	if _, err := second.engine.Login(context.Background(), testIdentity, testSecret); !errors.Is(err, accountgate.ErrLoginRateLimited) {
		t.Fatalf("expected lockout to be visible to the second engine, got %v", err)
	}
}

func TestRedisUnavailableFailsClosed(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	env := newTestEngine(t, testConfig(), func(b *accountgate.Builder) { b.WithRedis(rdb) })
	mr.Close()

	_, err := env.engine.Login(context.Background(), testIdentity, testSecret)
	if !errors.Is(err, accountgate.ErrAttemptStoreUnavailable) {
		t.Fatalf("expected ErrAttemptStoreUnavailable, got %v", err)
	}
}

func TestLockoutSurvivesCounterTableChurn(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxTrackedIdentifiers = 3
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	failLogins(t, env.engine, testIdentity, 5)
	for _, ghost := range []string{"ghost1@example.com", "ghost2@example.com", "ghost3@example.com", "ghost4@example.com"} {
		env.clock.Advance(time.Second)
		failLogins(t, env.engine, ghost, 1)
	}

	if _, err := env.engine.Login(ctx, testIdentity, testSecret); !errors.Is(err, accountgate.ErrLoginRateLimited) {
		t.Fatalf("expected lockout to survive eviction pressure, got %v", err)
	}
}

func TestLockoutTableFullOfLockedIdentifiers(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxTrackedIdentifiers = 2
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	failLogins(t, env.engine, testIdentity, 5)
	failLogins(t, env.engine, "bob@example.com", 5)

	// No slot can be freed; the newcomer is rejected but goes uncounted.
	failLogins(t, env.engine, "ghost@example.com", 1)
	status, err := env.engine.AttemptStatus(ctx, "ghost@example.com")
	if err != nil {
		t.Fatalf("AttemptStatus error: %v", err)
	}
	if status.Failures != 0 {
		t.Fatalf("expected untracked newcomer, got %+v", status)
	}

	for _, id := range []string{testIdentity, "bob@example.com"} {
		if _, err := env.engine.Login(ctx, id, testSecret); !errors.Is(err, accountgate.ErrLoginRateLimited) {
			t.Fatalf("%s: expected ErrLoginRateLimited, got %v", id, err)
		}
	}

	env.clock.Advance(30 * time.Minute)
	if _, err := env.engine.Login(ctx, testIdentity, testSecret); err != nil {
		t.Fatalf("Login after window error: %v", err)
	}
}

func TestRetentionRestartsStaleStreak(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.Retention = cfg.Lockout.Window
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	failLogins(t, env.engine, testIdentity, 3)
	env.clock.Advance(cfg.Lockout.Retention)
	failLogins(t, env.engine, testIdentity, 1)

	status, err := env.engine.AttemptStatus(ctx, testIdentity)
	if err != nil {
		t.Fatalf("AttemptStatus error: %v", err)
	}
	if status.Failures != 1 || status.Locked {
		t.Fatalf("expected a fresh streak after retention, got %+v", status)
	}

	failLogins(t, env.engine, testIdentity, 4)
	if _, err := env.engine.Login(ctx, testIdentity, testSecret); !errors.Is(err, accountgate.ErrLoginRateLimited) {
		t.Fatalf("expected the fresh streak to lock, got %v", err)
	}
}
