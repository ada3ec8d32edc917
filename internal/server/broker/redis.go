package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	redis "github.com/redis/go-redis/v9"
)

// RedisBroker publishes through a Redis channel and delivers what it
// receives on that channel to a local Hub. A replica's own publishes come
// back through Redis like everyone else's.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     logging.Logger
}

// NewRedisBroker connects to addr and fails fast when Redis is unreachable.
func NewRedisBroker(ctx context.Context, addr, channel string, log logging.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisBroker{
		client:  client,
		channel: channel,
		hub:     NewHub(),
		log:     log.With("module", "redis_broker"),
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, doc models.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(path string) *Subscription {
	return b.hub.Subscribe(path)
}

// Run relays the Redis channel into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.log.Info(ctx, "Relaying snapshots", "channel", b.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(ctx, msg.Payload)
		}
	}
}

func (b *RedisBroker) deliver(ctx context.Context, payload string) {
	var doc models.Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		b.log.Warn(ctx, "dropping malformed snapshot", "error", err)
		return
	}
	_ = b.hub.Publish(ctx, doc)
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
