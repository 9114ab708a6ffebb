package pkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/pkg/lib/events"
	"github.com/redis/go-redis/v9"
)

// RedisPubSub implements both events.Publisher and events.Subscriber on Redis
// pub/sub channels. Messages are fire-and-forget, like NATS core.
type RedisPubSub struct {
	client *redis.Client
	logger core.Logger

	mu     sync.Mutex
	subs   []*redis.PubSub
	wg     sync.WaitGroup
	closed bool
}

func NewRedisPubSub(ctx context.Context, url string, logger core.Logger) (*RedisPubSub, error) {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPubSub{client: client, logger: logger}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, topic string, msg []byte) error {
	return r.client.Publish(ctx, topic, msg).Err()
}

func (r *RedisPubSub) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("redis pubsub closed")
	}

	ps := r.client.Subscribe(ctx, topic)
	// Wait for the subscription confirmation so no message published right
	// after Subscribe returns is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}
	r.subs = append(r.subs, ps)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range ps.Channel() {
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				r.logger.Info("redis handler failed", "topic", topic, "error", err)
			}
		}
	}()
	return nil
}

func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, ps := range subs {
		_ = ps.Close()
	}
	r.wg.Wait()
	return r.client.Close()
}
