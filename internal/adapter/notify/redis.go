package notify

import (
	"context"
	"fmt"

	"group-savings-engine/internal/domain/event"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "ledger.events"

// RedisPublisher publishes events as JSON on a pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

var _ event.Sink = (*RedisPublisher)(nil)

func (p *RedisPublisher) Notify(ctx context.Context, e event.Event) error {
	body, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}
