package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/ws"
)

func encode(t *testing.T, op string, data any, seq int64) []byte {
	t.Helper()
	raw, err := json.Marshal(ws.Event{Op: op, Data: data, Seq: seq})
	require.NoError(t, err)
	return raw
}

func TestDecode_NewNotification(t *testing.T) {
	view := models.NotificationView{
		Notification: models.Notification{
			ID:          "n1",
			RecipientID: "u1",
			SenderID:    "u2",
			Type:        models.NotificationNewComment,
			Message:     `bob commented on your book "Dune"`,
		},
		Sender: &models.UserSummary{ID: "u2", Username: "bob"},
	}

	ev, seq, err := Decode(encode(t, ws.OpNewNotification, ws.NewNotificationData{NotificationView: view, UnreadCount: 4}, 17))
	require.NoError(t, err)
	assert.Equal(t, int64(17), seq)

	created, ok := ev.(NotificationCreated)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "n1", created.Notification.ID)
	assert.Equal(t, "bob", created.Notification.Sender.Username)
	assert.Equal(t, 4, created.UnreadCount)
	assert.Equal(t, ws.OpNewNotification, ev.Op())
}

func TestDecode_Payloads(t *testing.T) {
	tests := []struct {
		name string
		op   string
		data any
		want Event
	}{
		{
			name: "status changed",
			op:   ws.OpNotificationStatusChanged,
			data: models.NotificationStatus{NotificationID: "n1", IsRead: true, UnreadCount: 2},
			want: NotificationStatusChanged{models.NotificationStatus{NotificationID: "n1", IsRead: true, UnreadCount: 2}},
		},
		{
			name: "marked all read",
			op:   ws.OpNotificationsMarkedAsRead,
			data: ws.NotificationsMarkedAsReadData{UnreadCount: 0},
			want: NotificationsMarkedAsRead{UnreadCount: 0},
		},
		{
			name: "deleted",
			op:   ws.OpNotificationDeleted,
			data: models.NotificationDeletion{NotificationID: "n2", UnreadCount: 1},
			want: NotificationDeleted{models.NotificationDeletion{NotificationID: "n2", UnreadCount: 1}},
		},
		{
			name: "comment deleted",
			op:   ws.OpCommentDeleted,
			data: ws.CommentDeletedData{CommentID: "c1", BookID: "b1", SenderID: "u1"},
			want: CommentDeleted{CommentID: "c1", BookID: "b1", SenderID: "u1"},
		},
		{
			name: "join denied",
			op:   ws.OpJoinDenied,
			data: ws.JoinDeniedData{Room: "admin", Reason: "admin only"},
			want: JoinDenied{Room: "admin", Reason: "admin only"},
		},
		{
			name: "heartbeat ack",
			op:   ws.OpHeartbeatAck,
			want: HeartbeatAck{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, _, err := Decode(encode(t, tt.op, tt.data, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecode_UnknownOp(t *testing.T) {
	ev, _, err := Decode([]byte(`{"op":"typingStart","d":{"x":1}}`))
	require.NoError(t, err)

	unknown, ok := ev.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "typingStart", unknown.Op())
	assert.JSONEq(t, `{"x":1}`, string(unknown.Raw))
}

func TestDecode_Malformed(t *testing.T) {
	_, _, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, _, err = Decode([]byte(`{"d":{}}`))
	assert.Error(t, err)

	_, _, err = Decode([]byte(`{"op":"newComment","d":"oops"}`))
	assert.Error(t, err)
}
