package lock

import (
	"context"
	"sync"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/pkg/id"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTTL  = 30 * time.Second
	retryPeriod = 25 * time.Millisecond
	keyPrefix   = "lock:group:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired holder never frees a lock someone else has taken since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every engine instance using the same server.
// The TTL bounds how long a crashed holder blocks the group.
type Redis struct {
	rdb  *redis.Client
	wait time.Duration
	ttl  time.Duration
	log  *zap.Logger
}

func NewRedis(rdb *redis.Client, wait, ttl time.Duration, log *zap.Logger) *Redis {
	if wait <= 0 {
		wait = DefaultWait
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rdb: rdb, wait: wait, ttl: ttl, log: log}
}

var _ Locker = (*Redis)(nil)

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := id.NewID32()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, errs.ErrUnavailable.Wrap(err)
		}
		if ok {
			return r.releaser(k, token), nil
		}
		if time.Now().After(deadline) {
			return nil, errs.ErrBusy.Withf("lock %s not acquired within %s", key, r.wait)
		}
		select {
		case <-time.After(retryPeriod):
		case <-ctx.Done():
			return nil, errs.ErrBusy.Wrap(ctx.Err())
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
				r.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
