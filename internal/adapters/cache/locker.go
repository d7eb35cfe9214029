package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"campushub/internal/domain"
)

// releaseScript deletes the lock only while it is still held by the caller.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

const releaseTimeout = 5 * time.Second

type lockClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Locker is a single-key Redis lock. The lock expires after ttl even if the
// holder never releases it.
type Locker struct {
	rdb    lockClient
	logger *slog.Logger
}

var _ domain.Locker = (*Locker)(nil)

func NewLocker(rdb *redis.Client, logger *slog.Logger) *Locker {
	return &Locker{rdb: rdb, logger: logger}
}

func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, func(), error) {
	key := keyPrefix + "lock:" + name
	owner := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return false, func() {}, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		n, err := l.rdb.Eval(ctx, releaseScript, []string{key}, owner).Int64()
		if err != nil {
			l.logger.Warn("lock release failed", "lock", name, "error", err)
			return
		}
		if n == 0 {
			l.logger.Warn("lock expired before release", "lock", name)
		}
	}
	return true, release, nil
}
