// Package ws is the realtime layer: socket connections, room membership
// and room-scoped fan-out.
//
// Flow:
//  1. A REST mutation commits in a service.
//  2. The service calls EventPublisher.Publish(room, event).
//  3. The Hub (directly, or through the Redis backplane when several
//     processes run) delivers the event to every connection in the room.
//  4. Each Client's WritePump writes it to the socket.
//
// Delivery is best effort. The store stays the source of truth and
// clients re-fetch over REST after a reconnect.
package ws

import (
	"encoding/json"

	"github.com/bookshelf/server/models"
)

// Event is one socket frame.
//
// Seq increases per hub for outbound events, so a client can spot gaps
// on a connection.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// inboundEvent keeps the payload raw until the op is known.
type inboundEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
}

// Client -> server
const (
	OpHeartbeat      = "heartbeat"
	OpJoinUserRoom   = "joinUserRoom"
	OpJoinBookRoom   = "joinBookRoom"
	OpLeaveBookRoom  = "leaveBookRoom"
	OpJoinAdminRoom  = "joinAdminRoom"
	OpLeaveAdminRoom = "leaveAdminRoom"
)

// Server -> client
const (
	OpHeartbeatAck = "heartbeat_ack"
	OpRoomJoined   = "roomJoined"
	OpRoomLeft     = "roomLeft"
	OpJoinDenied   = "joinDenied"

	// user:<id>
	OpNewNotification           = "newNotification"
	OpNotificationStatusChanged = "notificationStatusChanged"
	OpNotificationsMarkedAsRead = "notificationsMarkedAsRead"
	OpNotificationDeleted       = "notificationDeleted"
	OpAllNotificationsDeleted   = "allNotificationsDeleted"

	// book:<id>
	OpNewComment            = "newComment"
	OpCommentUpdated        = "commentUpdated"
	OpCommentDeleted        = "commentDeleted"
	OpBookInteractionUpdate = "bookInteractionUpdate"

	// admin
	OpNewUser   = "newUser"
	OpNewBook   = "newBook"
	OpNewReport = "newReport"
)

// ─── Payloads ───

type RoomData struct {
	Room string `json:"room"`
}

type JoinDeniedData struct {
	Room   string `json:"room"`
	Reason string `json:"reason"`
}

// NewNotificationData is the resolved notification plus the unread count
// queried right after it was stored.
type NewNotificationData struct {
	models.NotificationView
	UnreadCount  int   `json:"unreadCount"`
	CountVersion int64 `json:"countVersion"`
}

type NotificationsMarkedAsReadData struct {
	UnreadCount  int   `json:"unreadCount"`
	CountVersion int64 `json:"countVersion"`
}

type AllNotificationsDeletedData struct {
	UnreadCount  int   `json:"unreadCount"`
	CountVersion int64 `json:"countVersion"`
}

type CommentDeletedData struct {
	CommentID string `json:"commentId"`
	BookID    string `json:"bookId"`
	SenderID  string `json:"senderId"`
}

// parseID reads a room target that older clients send as a bare JSON
// string and newer ones as an object {"<field>": "..."}.
func parseID(raw json.RawMessage, field string) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	id, _ := obj[field].(string)
	return id
}
