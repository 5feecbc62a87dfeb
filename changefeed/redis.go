package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus shares events between every instance of the service. Publishes go
// to a Redis channel; each instance relays what it hears to its local
// subscribers.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	local   *MemoryBus
	logger  *slog.Logger
}

func NewRedisBus(rdb *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		local:   NewMemoryBus(0, logger),
		logger:  logger,
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe() (<-chan Event, func()) {
	return b.local.Subscribe()
}

// Run relays the Redis channel into local subscribers until ctx ends.
func (b *RedisBus) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	b.logger.Info("📡 change feed relay started", "channel", b.channel)
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("change feed relay stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("❌ bad change feed message", "err", err)
				continue
			}
			_ = b.local.Publish(ctx, ev)
		}
	}
}
