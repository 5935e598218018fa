package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bookshelf/server/pkg/metrics"
)

// Deliverer receives events from the backplane. *Hub implements it.
type Deliverer interface {
	Deliver(room string, event Event)
}

// envelope is the Redis message. Data stays raw so payload bytes pass
// through unchanged.
type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Op     string          `json:"op"`
	Data   json.RawMessage `json:"d,omitempty"`
}

// RedisBackplane shares one Pub/Sub channel between all server processes.
// Every process, the publisher included, delivers what it receives, so a
// room sees the same event stream regardless of which process a member is
// connected to.
type RedisBackplane struct {
	client  redis.UniversalClient
	channel string
	origin  string
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewRedisBackplane(client redis.UniversalClient, channel string, m *metrics.Metrics, log *zap.Logger) *RedisBackplane {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBackplane{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		metrics: m,
		log:     log.Named("backplane"),
	}
}

func (b *RedisBackplane) Publish(ctx context.Context, room string, event Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	payload, err := json.Marshal(envelope{Origin: b.origin, Room: room, Op: event.Op, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	b.metrics.Backplane("out")
	return nil
}

// Subscribe blocks until the subscription is confirmed, then delivers
// messages to sink in a background goroutine until ctx is done.
func (b *RedisBackplane) Subscribe(ctx context.Context, sink Deliverer) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.handle(msg.Payload, sink)
			}
		}
	}()

	b.log.Info("subscribed", zap.String("channel", b.channel), zap.String("origin", b.origin))
	return nil
}

func (b *RedisBackplane) handle(payload string, sink Deliverer) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Warn("invalid backplane message", zap.Error(err))
		return
	}
	b.metrics.Backplane("in")

	event := Event{Op: env.Op}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		event.Data = env.Data
	}
	sink.Deliver(env.Room, event)
}
