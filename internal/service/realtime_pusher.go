package service

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPusher delivers notifications over Redis pub/sub. The gateway that
// terminates the user's websocket subscribes to the same per-user channel.
type RedisPusher struct {
	client *redis.Client
	prefix string
}

// NewRedisPusher constructs a pusher. The channel key is the prefix followed
// by the stringified user id.
func NewRedisPusher(client *redis.Client, prefix string) *RedisPusher {
	if prefix == "" {
		prefix = "notifications:user:"
	}
	return &RedisPusher{client: client, prefix: prefix}
}

// Push publishes the payload to the user's channel.
func (p *RedisPusher) Push(ctx context.Context, userID string, payload []byte) error {
	return p.client.Publish(ctx, p.prefix+userID, payload).Err()
}
