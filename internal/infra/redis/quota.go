package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/pushover/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

var consumeScript = goredis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= tonumber(ARGV[1]) then
  return {0, used}
end
used = redis.call("INCR", KEYS[1])
redis.call("EXPIREAT", KEYS[1], ARGV[2])
return {1, used}
`)

var _ ratelimit.Quota = (*RedisQuota)(nil)

// RedisQuota shares monthly quota counters between mock server instances.
type RedisQuota struct {
	client *goredis.Client
	limit  int
	now    func() time.Time
	script *goredis.Script
}

func NewRedisQuota(client *goredis.Client, limit int) (*RedisQuota, error) {
	return newRedisQuota(client, limit, time.Now)
}

func newRedisQuota(client *goredis.Client, limit int, nowFn func() time.Time) (*RedisQuota, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit < 0 {
		return nil, fmt.Errorf("quota limit must not be negative, got %d", limit)
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisQuota{
		client: client,
		limit:  limit,
		now:    nowFn,
		script: consumeScript,
	}, nil
}

func (q *RedisQuota) Consume(ctx context.Context, appToken string) (ratelimit.Usage, bool, error) {
	if q == nil || q.client == nil || q.script == nil {
		return ratelimit.Usage{}, false, fmt.Errorf("quota is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key, reset, err := q.key(appToken)
	if err != nil {
		return ratelimit.Usage{}, false, err
	}

	result, err := q.script.Run(ctx, q.client, []string{key}, q.limit, reset.Unix()).Int64Slice()
	if err != nil {
		return ratelimit.Usage{}, false, fmt.Errorf("failed to consume quota: %w", err)
	}
	if len(result) != 2 {
		return ratelimit.Usage{}, false, fmt.Errorf("unexpected quota script result %v", result)
	}

	return ratelimit.NewUsage(q.limit, result[1], reset), result[0] == 1, nil
}

func (q *RedisQuota) Usage(ctx context.Context, appToken string) (ratelimit.Usage, error) {
	if q == nil || q.client == nil {
		return ratelimit.Usage{}, fmt.Errorf("quota is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key, reset, err := q.key(appToken)
	if err != nil {
		return ratelimit.Usage{}, err
	}

	used, err := q.client.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		used = 0
	} else if err != nil {
		return ratelimit.Usage{}, fmt.Errorf("failed to read quota: %w", err)
	}

	return ratelimit.NewUsage(q.limit, used, reset), nil
}

func (q *RedisQuota) Ping(ctx context.Context) error {
	if q == nil || q.client == nil {
		return fmt.Errorf("quota is not initialized")
	}
	return q.client.Ping(ctx).Err()
}

func (q *RedisQuota) key(appToken string) (string, time.Time, error) {
	token := strings.TrimSpace(appToken)
	if token == "" {
		return "", time.Time{}, fmt.Errorf("application token is required")
	}

	start, reset := ratelimit.Period(q.now())
	return fmt.Sprintf("quota:%s:%d", token, start.Unix()), reset, nil
}
