package attempts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lat:"

// incrementScript bumps the count and stamps the first failure time and TTL
// only when the streak starts. Returns {count, first_failure_unix_ms}.
var incrementScript = redis.NewScript(`
local c = redis.call('HINCRBY', KEYS[1], 'count', 1)
if c == 1 then
  redis.call('HSET', KEYS[1], 'first', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local first = redis.call('HGET', KEYS[1], 'first')
if not first then
  first = ARGV[1]
  redis.call('HSET', KEYS[1], 'first', first)
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {c, first}
`)

// RedisStore shares counters between engine instances.
type RedisStore struct {
	redis     redis.UniversalClient
	retention time.Duration
}

// NewRedisStore returns a store backed by client. Counters expire retention
// after their first failure.
func NewRedisStore(client redis.UniversalClient, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{redis: client, retention: retention}
}

func counterKey(identifier string) string {
	return keyPrefix + identifier
}

// Get reads the counter for identifier.
func (s *RedisStore) Get(ctx context.Context, identifier string) (Counter, bool, error) {
	vals, err := s.redis.HMGet(ctx, counterKey(identifier), "count", "first").Result()
	if err != nil {
		return Counter{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return Counter{}, false, nil
	}

	count, err := parseInt(vals[0])
	if err != nil {
		return Counter{}, false, fmt.Errorf("%w: corrupt count: %v", ErrUnavailable, err)
	}
	first, err := parseInt(vals[1])
	if err != nil {
		return Counter{}, false, fmt.Errorf("%w: corrupt first failure: %v", ErrUnavailable, err)
	}
	if count <= 0 {
		return Counter{}, false, nil
	}
	return Counter{Count: int(count), FirstFailureAt: time.UnixMilli(first)}, true, nil
}

// Increment atomically extends the streak for identifier.
func (s *RedisStore) Increment(ctx context.Context, identifier string, now time.Time) (Counter, error) {
	res, err := incrementScript.Run(ctx, s.redis,
		[]string{counterKey(identifier)},
		now.UnixMilli(),
		s.retention.Milliseconds(),
	).Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, res)
	}

	count, err := parseInt(res[0])
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	first, err := parseInt(res[1])
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Counter{Count: int(count), FirstFailureAt: time.UnixMilli(first)}, nil
}

// Clear deletes the counter for identifier.
func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, counterKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func parseInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	case nil:
		return 0, errors.New("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
