package backplane

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport is a Transport backed by Redis Pub/Sub: best-effort,
// at-most-once, no delivery ordering guarantee across peers.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps an existing Redis client as a backplane
// Transport.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	if client == nil {
		panic("backplane: redis client cannot be nil")
	}
	return &RedisTransport{client: client}
}

// Publish emits payload on channel via Redis PUBLISH.
func (t *RedisTransport) Publish(ctx context.Context, channel string, payload string) error {
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("backplane: redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a Redis Pub/Sub subscription to channel and dispatches
// each received message to handler from a dedicated goroutine. The
// returned unsubscribe function closes the subscription.
func (t *RedisTransport) Subscribe(ctx context.Context, channel string, handler func(payload string)) (func() error, error) {
	pubsub := t.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("backplane: redis subscribe: %w", err)
	}

	ch := pubsub.Channel()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Payload)
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return pubsub.Close()
	}, nil
}
