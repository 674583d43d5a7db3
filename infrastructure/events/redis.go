package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fanserve/media-api/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus publishes events over redis pub/sub channels.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
}

func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

func (b *RedisBus) Subscribe(channel, label string, handler Handler) error {
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	sub := b.client.Subscribe(ctx, channel)

	// Force the subscription before returning so publishes after Subscribe
	// are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Error("dropping undecodable event",
						zap.String("channel", channel),
						zap.String("subscriber", label),
						zap.Error(err),
					)
					continue
				}
				handler(ctx, &event)
			}
		}
	}()

	b.log.Info("subscribed to channel",
		zap.String("channel", channel),
		zap.String("subscriber", label),
	)
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	return nil
}
