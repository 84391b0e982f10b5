package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/logger"
)

// releaseScript deletes the key only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker extends a LocalLocker across replicas with SET NX.
// When Redis is unreachable it falls back to the local lock only.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	local  *LocalLocker
	logger *zap.Logger
}

// NewRedisLocker creates a Locker backed by rdb; keys expire after ttl
func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "pmbot:lock:",
		local:  NewLocalLocker(),
		logger: logger.OrNop(log),
	}
}

// Acquire takes the named lock in-process and in Redis
func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(), error) {
	releaseLocal, err := l.local.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}

	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.logger.Warn("redis lock unavailable, using local lock only",
			zap.String("lock", name),
			zap.Error(err),
		)
		return releaseLocal, nil
	}
	if !ok {
		releaseLocal()
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled at release time
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release redis lock", zap.String("lock", name), zap.Error(err))
			}
			releaseLocal()
		})
	}, nil
}
