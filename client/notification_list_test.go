package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
)

func view(id string, isRead bool, at time.Time) models.NotificationView {
	return models.NotificationView{Notification: models.Notification{
		ID:        id,
		Type:      models.NotificationNewFollower,
		IsRead:    isRead,
		CreatedAt: at,
	}}
}

func ids(items []models.NotificationView) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func TestNotificationList_NewestFirstAndIdempotentUpsert(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewNotificationList()

	l.Replace([]models.NotificationView{view("a", false, base), view("b", true, base.Add(time.Minute))})
	l.Upsert(view("c", false, base.Add(2*time.Minute)))
	l.Upsert(view("c", false, base.Add(2*time.Minute)))

	assert.Equal(t, []string{"c", "b", "a"}, ids(l.Items()))
}

func TestNotificationList_SetRead(t *testing.T) {
	l := NewNotificationList()
	l.Upsert(view("a", false, time.Now()))

	assert.True(t, l.SetRead("a", true))
	assert.False(t, l.SetRead("a", true), "already read")
	assert.False(t, l.SetRead("missing", true))

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.True(t, got.IsRead)
}

func TestNotificationList_RemoveAndClear(t *testing.T) {
	l := NewNotificationList()
	now := time.Now()
	l.Replace([]models.NotificationView{view("a", false, now), view("b", false, now.Add(time.Second))})

	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("a"))
	assert.Equal(t, []string{"b"}, ids(l.Items()))

	l.MarkAllRead()
	got, _ := l.Get("b")
	assert.True(t, got.IsRead)

	l.Clear()
	assert.Empty(t, l.Items())
}
