package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/accountgate"
	"github.com/MrEthical07/accountgate/password"
	"github.com/MrEthical07/accountgate/store/memory"
)

const seedSecret = "correct horse battery staple"

type loginKind int

const (
	kindValid loginKind = iota
	kindWrongSecret
	kindUnknown
	kindCount
)

var kindNames = [kindCount]string{"valid", "wrong_secret", "unknown_identifier"}

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		loginOps    = flag.Int("login-ops", 2000, "login operations")
		listOps     = flag.Int("list-ops", 20000, "listing operations")
		pageSize    = flag.Int("page-size", 25, "listing page size")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		memoryKB    = flag.Uint("argon-memory-kb", 0, "override Argon2id memory (KiB)")
		verbose     = flag.Bool("v", false, "log engine warnings")
	)
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *verbose {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(logLevel).
		With().Timestamp().Logger()

	if *accounts <= 0 || *concurrency <= 0 || *loginOps <= 0 || *listOps <= 0 || *pageSize <= 0 {
		logger.Fatal().Msg("accounts, concurrency, login-ops, list-ops and page-size must be > 0")
	}

	cfg, err := accountgate.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *memoryKB > 0 {
		cfg.Password.Memory = uint32(*memoryKB)
	}
	if len(cfg.JWT.PrivateKey) == 0 {
		cfg.JWT.SigningMethod = "hs256"
		cfg.JWT.PrivateKey = []byte("loadtest-secret-loadtest-secret-0123")
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal().Err(err).Msg("start miniredis")
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info().Str("addr", mr.Addr()).Msg("using miniredis")
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		logger.Info().Str("addr", addr).Msg("using redis")
	}
	defer cleanup()

	hasher, err := password.New(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("password hasher")
	}

	startSeed := time.Now()
	store, err := seedStore(hasher, *accounts)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed accounts")
	}
	logger.Info().Int("accounts", *accounts).Dur("took", time.Since(startSeed).Round(time.Millisecond)).Msg("seeded")

	engine, err := accountgate.New().
		WithConfig(cfg).
		WithRecordStore(store).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	login := runLoginPhase(ctx, engine, *accounts, *loginOps, *concurrency)
	list := runListPhase(ctx, engine, *accounts, *pageSize, *listOps, *concurrency)

	fmt.Println("---- results ----")
	for k := loginKind(0); k < kindCount; k++ {
		printStats("login/"+kindNames[k], login.byKind[k])
	}
	fmt.Printf("login: rate_limited=%d\n", login.rateLimited)
	printStats("list", list)

	// Wrong secrets on known identifiers and unknown identifiers should cost the
	// same Argon2id evaluation.
	known, unknown := login.byKind[kindWrongSecret].p50, login.byKind[kindUnknown].p50
	if known > 0 && unknown > 0 {
		gap := known - unknown
		if gap < 0 {
			gap = -gap
		}
		fmt.Printf("hit/miss p50 gap: %s (%.1f%%)\n", gap.Round(time.Microsecond), 100*float64(gap)/float64(known))
	}
}

func accountIdentifier(i int) string {
	return fmt.Sprintf("user%06d@example.com", i)
}

// seedStore hashes the shared secret once and reuses it for every account.
func seedStore(hasher *password.Hasher, n int) (*memory.Store, error) {
	hash, err := hasher.Hash(seedSecret)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	seed := make([]accountgate.Account, n)
	for i := range seed {
		seed[i] = accountgate.Account{
			ID:         fmt.Sprintf("acct-%06d", i),
			Identifier: accountIdentifier(i),
			Name:       fmt.Sprintf("User %d", i),
			SecretHash: hash,
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
			UpdatedAt:  now,
		}
	}
	return memory.New(seed...)
}

type loginStats struct {
	byKind      [kindCount]phaseStats
	rateLimited int64
}

func runLoginPhase(ctx context.Context, engine *accountgate.Engine, accounts, ops, concurrency int) loginStats {
	var (
		wg          sync.WaitGroup
		cursor      int64
		rateLimited int64
		mu          sync.Mutex
		samples     [kindCount][]time.Duration
		failures    [kindCount]int64
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				kind := loginKind(i % int(kindCount))
				identifier, secret := accountIdentifier(r.Intn(accounts)), seedSecret
				switch kind {
				case kindWrongSecret:
					secret = "not the right secret"
				case kindUnknown:
					identifier = fmt.Sprintf("ghost%06d@example.com", r.Intn(accounts))
				}

				t0 := time.Now()
				_, err := engine.Login(ctx, identifier, secret)
				d := time.Since(t0)

				if errors.Is(err, accountgate.ErrLoginRateLimited) {
					atomic.AddInt64(&rateLimited, 1)
					continue
				}
				if (kind == kindValid) != (err == nil) {
					atomic.AddInt64(&failures[kind], 1)
				}
				mu.Lock()
				samples[kind] = append(samples[kind], d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	var out loginStats
	for k := range samples {
		out.byKind[k] = computeStats(total, samples[k], failures[k])
	}
	out.rateLimited = rateLimited
	return out
}

func runListPhase(ctx context.Context, engine *accountgate.Engine, accounts, pageSize, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)
	sorts := []string{"email:asc", "name:desc", "created_at:asc", "id:desc"}
	searches := []string{"", "", "user00", "User 1"}
	pages := (accounts + pageSize - 1) / pageSize

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				q := accountgate.ListQuery{
					PageNumber: 1 + r.Intn(pages),
					PageSize:   pageSize,
					Search:     searches[r.Intn(len(searches))],
					SortString: sorts[r.Intn(len(sorts))],
				}
				t0 := time.Now()
				_, err := engine.ListAccounts(ctx, q)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
