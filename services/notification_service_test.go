package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/ws"
)

func TestNotify_PersistsAndBroadcastsWithFreshCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")

	first := env.notify(t, r.ID, s.ID)
	env.notify(t, r.ID, s.ID)

	events := env.hub.withOp(ws.OpNewNotification)
	require.Len(t, events, 2)
	assert.Equal(t, ws.UserRoom(r.ID), events[0].Room)

	data := events[0].Event.Data.(ws.NewNotificationData)
	assert.Equal(t, first.ID, data.ID)
	assert.Equal(t, 1, data.UnreadCount)
	require.NotNil(t, data.Sender)
	assert.Equal(t, "sender", data.Sender.Username)
	assert.Equal(t, 2, events[1].Event.Data.(ws.NewNotificationData).UnreadCount)
	assert.Equal(t, int64(1), data.CountVersion)
	assert.Equal(t, int64(2), events[1].Event.Data.(ws.NewNotificationData).CountVersion)

	count, err := env.notifications.UnreadCount(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count.UnreadCount)
	assert.Equal(t, int64(2), count.CountVersion)
}

func TestNotify_SelfFollowSuppressed(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "solo")

	view, err := env.notifications.Notify(context.Background(), models.NotifyParams{
		RecipientID: u.ID,
		SenderID:    u.ID,
		Type:        models.NotificationNewFollower,
		Message:     "solo started following you",
	})
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Empty(t, env.hub.all())

	count, err := env.notifications.UnreadCount(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Zero(t, count.UnreadCount)
}

func TestNotify_SelfLikeStillNotifies(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "solo")

	view, err := env.notifications.Notify(context.Background(), models.NotifyParams{
		RecipientID: u.ID,
		SenderID:    u.ID,
		Type:        models.NotificationNewLikeOnBook,
		Message:     "solo liked your book",
	})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Len(t, env.hub.withOp(ws.OpNewNotification), 1)
}

func TestNotify_InvalidParams(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notifications.Notify(context.Background(), models.NotifyParams{
		RecipientID: "a",
		SenderID:    "b",
		Type:        "poke",
		Message:     "hi",
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Empty(t, env.hub.all())
}

func TestMarkOneRead_TransitionsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")
	n := env.notify(t, r.ID, s.ID)
	env.notify(t, r.ID, s.ID)
	env.hub.reset()

	status, err := env.notifications.MarkOneRead(ctx, r.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.NotificationStatus{NotificationID: n.ID, IsRead: true, UnreadCount: 1, CountVersion: 3}, status)

	events := env.hub.withOp(ws.OpNotificationStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, ws.UserRoom(r.ID), events[0].Room)
	assert.Equal(t, status, events[0].Event.Data)

	// Already read: not found, nothing broadcast.
	_, err = env.notifications.MarkOneRead(ctx, r.ID, n.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Len(t, env.hub.all(), 1)

	status, err = env.notifications.MarkOneUnread(ctx, r.ID, n.ID)
	require.NoError(t, err)
	assert.False(t, status.IsRead)
	assert.Equal(t, 2, status.UnreadCount)
	assert.Equal(t, int64(4), status.CountVersion)

	_, err = env.notifications.MarkOneUnread(ctx, r.ID, n.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestMarkOneRead_ForeignRecordIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")
	mallory := env.user(t, "mallory")
	n := env.notify(t, r.ID, s.ID)
	env.hub.reset()

	_, err := env.notifications.MarkOneRead(ctx, mallory.ID, n.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.notifications.DeleteOne(ctx, mallory.ID, n.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.notifications.MarkOneRead(ctx, r.ID, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	assert.Empty(t, env.hub.all())

	count, err := env.notifications.UnreadCount(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count.UnreadCount)
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")
	for i := 0; i < 3; i++ {
		env.notify(t, r.ID, s.ID)
	}
	env.hub.reset()

	result, err := env.notifications.MarkAllRead(ctx, r.ID)
	require.NoError(t, err)
	assert.Zero(t, result.UnreadCount)

	events := env.hub.withOp(ws.OpNotificationsMarkedAsRead)
	require.Len(t, events, 1)
	assert.Equal(t, ws.NotificationsMarkedAsReadData{UnreadCount: 0, CountVersion: 4}, events[0].Event.Data)

	// Idempotent: still succeeds and reports zero.
	result, err = env.notifications.MarkAllRead(ctx, r.ID)
	require.NoError(t, err)
	assert.Zero(t, result.UnreadCount)
}

func TestDeleteOneAndAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")
	a := env.notify(t, r.ID, s.ID)
	b := env.notify(t, r.ID, s.ID)
	env.notify(t, r.ID, s.ID)

	_, err := env.notifications.MarkOneRead(ctx, r.ID, b.ID)
	require.NoError(t, err)
	env.hub.reset()

	// Deleting a read record keeps the unread count.
	deletion, err := env.notifications.DeleteOne(ctx, r.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.NotificationDeletion{NotificationID: b.ID, UnreadCount: 2, CountVersion: 5}, deletion)

	deletion, err = env.notifications.DeleteOne(ctx, r.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deletion.UnreadCount)

	_, err = env.notifications.DeleteOne(ctx, r.ID, a.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	result, err := env.notifications.DeleteAll(ctx, r.ID)
	require.NoError(t, err)
	assert.Zero(t, result.UnreadCount)

	ops := make([]string, 0)
	for _, e := range env.hub.all() {
		ops = append(ops, e.Event.Op)
	}
	assert.Equal(t, []string{ws.OpNotificationDeleted, ws.OpNotificationDeleted, ws.OpAllNotificationsDeleted}, ops)

	page, err := env.notifications.List(ctx, r.ID, models.FilterAll, models.PageParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
}

func TestList_FilterAndPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.user(t, "reader")
	s := env.user(t, "sender")
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, env.notify(t, r.ID, s.ID).ID)
	}
	_, err := env.notifications.MarkOneRead(ctx, r.ID, ids[0])
	require.NoError(t, err)

	page, err := env.notifications.List(ctx, r.ID, models.FilterAll, models.PageParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 4, page.UnreadCount)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, ids[4], page.Notifications[0].ID, "newest first")

	unread, err := env.notifications.List(ctx, r.ID, models.FilterUnread, models.PageParams{})
	require.NoError(t, err)
	assert.Len(t, unread.Notifications, 4)

	read, err := env.notifications.List(ctx, r.ID, models.FilterRead, models.PageParams{})
	require.NoError(t, err)
	require.Len(t, read.Notifications, 1)
	assert.Equal(t, ids[0], read.Notifications[0].ID)
}

func TestNotify_ConcurrentCountsAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	r := env.user(t, "reader")
	s := env.user(t, "sender")

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.notifications.Notify(context.Background(), models.NotifyParams{
				RecipientID: r.ID,
				SenderID:    s.ID,
				Type:        models.NotificationNewComment,
				Message:     "hi",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events := env.hub.withOp(ws.OpNewNotification)
	require.Len(t, events, n)
	for i, e := range events {
		data := e.Event.Data.(ws.NewNotificationData)
		assert.Equal(t, i+1, data.UnreadCount)
		assert.Equal(t, int64(i+1), data.CountVersion, "versions follow publish order")
	}
}

func TestNotify_SendsEmailWhenRecipientHasAddress(t *testing.T) {
	mailer := &recordingMailer{}
	env := newTestEnvWithMailer(t, mailer)
	r := env.userWithEmail(t, "reader", "reader@example.com")
	s := env.user(t, "sender")
	quiet := env.user(t, "quiet")

	env.notify(t, r.ID, s.ID)
	env.notify(t, quiet.ID, s.ID)

	eventually(t, func() bool { return len(mailer.messages()) == 1 })
	msg := mailer.messages()[0]
	assert.Equal(t, "reader@example.com", msg.To)
	assert.Equal(t, "New comment on your book", msg.Subject)
	assert.Equal(t, "hello", msg.Body)
}
