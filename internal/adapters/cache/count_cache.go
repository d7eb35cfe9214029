package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"campushub/internal/domain"
)

const (
	keyPrefix       = "campushub:"
	DefaultCountTTL = 30 * time.Second
	// generationTTL bounds how long an idle event's generation counter lives.
	generationTTL = 24 * time.Hour
)

// storeIfCurrentScript writes the count only while the event's generation is
// the one read before loading. A missing generation reads as "0".
const storeIfCurrentScript = `
local gen = redis.call("GET", KEYS[2])
if not gen then gen = "0" end
if gen == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`

// kvClient is the subset of *redis.Client the count cache needs.
type kvClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// CountCache keeps per-event member registration counts in Redis. Concurrent
// misses for the same event share one load. A Redis failure falls through to
// the loader.
//
// Invalidate bumps a per-event generation before deleting the count, and a load
// only stores its result if the generation is unchanged, so a load that raced
// an invalidation cannot put its stale count back.
type CountCache struct {
	rdb    kvClient
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

var _ domain.RegistrationCountCache = (*CountCache)(nil)

func NewCountCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CountCache {
	return newCountCache(rdb, ttl, logger)
}

func newCountCache(rdb kvClient, ttl time.Duration, logger *slog.Logger) *CountCache {
	if ttl <= 0 {
		ttl = DefaultCountTTL
	}
	return &CountCache{rdb: rdb, ttl: ttl, logger: logger}
}

func countKey(key domain.EventKey) string {
	return fmt.Sprintf("%sregcount:%s:%s", keyPrefix, key.ClubID, key.EventID)
}

func generationKey(key domain.EventKey) string {
	return countKey(key) + ":gen"
}

func (c *CountCache) GetOrLoad(ctx context.Context, key domain.EventKey, load func(ctx context.Context) (int, error)) (int, error) {
	k := countKey(key)
	val, err := c.rdb.Get(ctx, k).Result()
	switch {
	case err == nil:
		n, convErr := strconv.Atoi(val)
		if convErr == nil {
			return n, nil
		}
		c.logger.Warn("discarding corrupt count cache entry", "key", k, "value", val)
		c.rdb.Del(ctx, k)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("count cache read failed, loading from store", "key", k, "error", err)
		return load(ctx)
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		gk := generationKey(key)
		gen, genErr := c.rdb.Get(ctx, gk).Result()
		switch {
		case errors.Is(genErr, redis.Nil):
			gen = "0"
		case genErr != nil:
			c.logger.Warn("count cache generation read failed, not caching", "key", gk, "error", genErr)
		}

		n, err := load(ctx)
		if err != nil {
			return 0, err
		}
		if genErr != nil && !errors.Is(genErr, redis.Nil) {
			return n, nil
		}
		stored, err := c.rdb.Eval(ctx, storeIfCurrentScript, []string{k, gk}, gen, n, c.ttl.Milliseconds()).Int64()
		switch {
		case err != nil:
			c.logger.Warn("count cache write failed", "key", k, "error", err)
		case stored == 0:
			c.logger.Debug("count changed while loading, not caching", "key", k)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *CountCache) Invalidate(ctx context.Context, key domain.EventKey) error {
	gk := generationKey(key)
	if err := c.rdb.Incr(ctx, gk).Err(); err != nil {
		return fmt.Errorf("bump count cache generation: %w", err)
	}
	if err := c.rdb.Expire(ctx, gk, generationTTL).Err(); err != nil {
		c.logger.Warn("count cache generation expiry failed", "key", gk, "error", err)
	}
	if err := c.rdb.Del(ctx, countKey(key)).Err(); err != nil {
		return fmt.Errorf("invalidate count cache: %w", err)
	}
	return nil
}
