package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
)

type recordingDeliverer struct {
	mu     sync.Mutex
	rooms  []string
	events []Event
}

func (r *recordingDeliverer) Deliver(room string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
	r.events = append(r.events, event)
}

func (r *recordingDeliverer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestRedisBackplane_EveryProcessDelivers(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { c.Close() })
		return c
	}

	a := NewRedisBackplane(newClient(), "test:events", nil, nil)
	b := NewRedisBackplane(newClient(), "test:events", nil, nil)

	sinkA, sinkB := &recordingDeliverer{}, &recordingDeliverer{}
	require.NoError(t, a.Subscribe(ctx, sinkA))
	require.NoError(t, b.Subscribe(ctx, sinkB))

	snapshot := models.BookInteraction{BookID: "b1", LikeCount: 2, LikedBy: []string{"u1", "u2"}, DislikedBy: []string{}}
	require.NoError(t, a.Publish(ctx, BookRoom("b1"), Event{Op: OpBookInteractionUpdate, Data: snapshot}))

	assert.Eventually(t, func() bool {
		return sinkA.count() == 1 && sinkB.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	for _, sink := range []*recordingDeliverer{sinkA, sinkB} {
		assert.Equal(t, "book:b1", sink.rooms[0])
		assert.Equal(t, OpBookInteractionUpdate, sink.events[0].Op)

		raw, err := json.Marshal(sink.events[0].Data)
		require.NoError(t, err)
		var got models.BookInteraction
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, snapshot, got)
	}
}

func TestRedisBackplane_EmptyPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	bp := NewRedisBackplane(client, "test:events", nil, nil)
	sink := &recordingDeliverer{}
	require.NoError(t, bp.Subscribe(ctx, sink))

	require.NoError(t, bp.Publish(ctx, AdminRoom, Event{Op: OpHeartbeatAck}))

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Nil(t, sink.events[0].Data)
}

type failingBackplane struct{}

func (failingBackplane) Publish(context.Context, string, Event) error {
	return assert.AnError
}

func TestHub_FallsBackToLocalDeliveryWhenBackplaneFails(t *testing.T) {
	s := newTestServerWith(t, func(h *Hub) { h.UseBackplane(failingBackplane{}) })

	alice := s.dial(t, "alice")
	send(t, alice, OpJoinBookRoom, "b1")
	readOp(t, alice, OpRoomJoined)

	s.hub.Publish(BookRoom("b1"), Event{Op: OpCommentDeleted, Data: CommentDeletedData{CommentID: "c1", BookID: "b1"}})
	readOp(t, alice, OpCommentDeleted)
}
