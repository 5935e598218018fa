package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/pkg/cache"
	"github.com/bookshelf/server/pkg/metrics"
	"github.com/bookshelf/server/ws"
)

// Realtime owns the hub and, when Redis is configured, the backplane that
// spreads publishes across server processes.
type Realtime struct {
	Hub       *ws.Hub
	bookCache *cache.TTLCache[string, bool]
	redis     *redis.Client
	cancel    context.CancelFunc
}

func initRealtime(ctx context.Context, cfg *config.Config, repos *Repositories, m *metrics.Metrics, log *zap.Logger) (*Realtime, error) {
	// Book existence is checked on every joinBookRoom; books are never
	// deleted so positive answers can be cached.
	bookCache := cache.New[string, bool](5*time.Minute, time.Minute)
	authorizer := ws.NewRoomAuthorizer(repos.Book, bookCache)

	hub := ws.NewHub(authorizer, m, log)
	rt := &Realtime{Hub: hub, bookCache: bookCache}

	// The backplane is attached before the loop starts; Publish reads it
	// without locking.
	if cfg.Redis.Enabled() {
		if err := rt.attachBackplane(ctx, cfg.Redis, m, log); err != nil {
			rt.Close()
			return nil, err
		}
	} else {
		log.Info("redis backplane disabled, delivering in-process")
	}

	go hub.Run()
	return rt, nil
}

func (rt *Realtime) attachBackplane(ctx context.Context, cfg config.RedisConfig, m *metrics.Metrics, log *zap.Logger) error {
	client, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	rt.redis = client

	subCtx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel

	backplane := ws.NewRedisBackplane(client, cfg.Channel, m, log)
	if err := backplane.Subscribe(subCtx, rt.Hub); err != nil {
		return fmt.Errorf("failed to subscribe to backplane: %w", err)
	}
	rt.Hub.UseBackplane(backplane)

	log.Info("redis backplane enabled", zap.String("channel", cfg.Channel))
	return nil
}

func (rt *Realtime) Close() {
	if rt.cancel != nil {
		rt.cancel()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	rt.Hub.Shutdown()
	rt.bookCache.Close()
}
