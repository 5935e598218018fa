package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/pkg/metrics"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/ws"
)

func TestInitRealtime_PublishesThroughBackplane(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := &config.Config{Redis: config.RedisConfig{URL: "redis://" + mr.Addr(), Channel: "test:events"}}
	repos := &Repositories{Book: repository.NewSQLiteBookRepo(nil)}

	rt, err := initRealtime(ctx, cfg, repos, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	watcher := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { watcher.Close() })
	sub := watcher.Subscribe(ctx, "test:events")
	t.Cleanup(func() { sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	rt.Hub.Publish(ws.BookRoom("b1"), ws.Event{Op: ws.OpCommentDeleted, Data: ws.CommentDeletedData{CommentID: "c1", BookID: "b1"}})

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, ws.OpCommentDeleted)
	case <-time.After(3 * time.Second):
		t.Fatal("publish never reached the backplane")
	}
}

func TestInitRealtime_RedisFailureLeavesNoHub(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{URL: "redis://127.0.0.1:1", Channel: "test:events"}}
	repos := &Repositories{Book: repository.NewSQLiteBookRepo(nil)}

	rt, err := initRealtime(context.Background(), cfg, repos, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, rt)
}
