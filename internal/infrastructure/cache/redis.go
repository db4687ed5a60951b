package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenRedis connects and pings once. The client is shared by the lock
// backend, the redis event sink and the idempotency middleware.
func OpenRedis(addr string, db int, log *zap.Logger) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	if log != nil {
		log.Info("redis: connected", zap.String("addr", addr), zap.Int("db", db))
	}
	return r, nil
}
