package client

import (
	"encoding/json"
	"fmt"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/ws"
)

// Event is one decoded server push. The concrete types below are the
// whole set; Dispatcher switches on them.
type Event interface {
	Op() string
}

type NotificationCreated struct {
	Notification models.NotificationView
	UnreadCount  int
	CountVersion int64
}

type NotificationStatusChanged struct {
	models.NotificationStatus
}

type NotificationsMarkedAsRead struct {
	UnreadCount  int
	CountVersion int64
}

type NotificationDeleted struct {
	models.NotificationDeletion
}

type AllNotificationsDeleted struct {
	UnreadCount  int
	CountVersion int64
}

type CommentCreated struct {
	Comment models.Comment
}

type CommentUpdated struct {
	Comment models.Comment
}

type CommentDeleted struct {
	CommentID string
	BookID    string
	SenderID  string
}

type InteractionUpdated struct {
	Interaction models.BookInteraction
}

type UserRegistered struct{ User models.User }
type BookCreated struct{ Book models.Book }
type ReportSubmitted struct{ Report models.Report }

type RoomJoined struct{ Room string }
type RoomLeft struct{ Room string }
type JoinDenied struct{ Room, Reason string }
type HeartbeatAck struct{}

// Unknown carries ops this client version does not understand.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (NotificationCreated) Op() string       { return ws.OpNewNotification }
func (NotificationStatusChanged) Op() string { return ws.OpNotificationStatusChanged }
func (NotificationsMarkedAsRead) Op() string { return ws.OpNotificationsMarkedAsRead }
func (NotificationDeleted) Op() string       { return ws.OpNotificationDeleted }
func (AllNotificationsDeleted) Op() string   { return ws.OpAllNotificationsDeleted }
func (CommentCreated) Op() string            { return ws.OpNewComment }
func (CommentUpdated) Op() string            { return ws.OpCommentUpdated }
func (CommentDeleted) Op() string            { return ws.OpCommentDeleted }
func (InteractionUpdated) Op() string        { return ws.OpBookInteractionUpdate }
func (UserRegistered) Op() string            { return ws.OpNewUser }
func (BookCreated) Op() string               { return ws.OpNewBook }
func (ReportSubmitted) Op() string           { return ws.OpNewReport }
func (RoomJoined) Op() string                { return ws.OpRoomJoined }
func (RoomLeft) Op() string                  { return ws.OpRoomLeft }
func (JoinDenied) Op() string                { return ws.OpJoinDenied }
func (HeartbeatAck) Op() string              { return ws.OpHeartbeatAck }
func (u Unknown) Op() string                 { return u.Name }

// frame is the wire envelope {"op", "d", "seq"}.
type frame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Decode parses one socket frame into its typed event and sequence number.
func Decode(data []byte) (Event, int64, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, 0, fmt.Errorf("decode frame: %w", err)
	}
	if f.Op == "" {
		return nil, 0, fmt.Errorf("decode frame: missing op")
	}

	ev, err := decodePayload(f.Op, f.Data)
	if err != nil {
		return nil, f.Seq, fmt.Errorf("decode %s: %w", f.Op, err)
	}
	return ev, f.Seq, nil
}

func decodePayload(op string, raw json.RawMessage) (Event, error) {
	switch op {
	case ws.OpNewNotification:
		var d ws.NewNotificationData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return NotificationCreated{Notification: d.NotificationView, UnreadCount: d.UnreadCount, CountVersion: d.CountVersion}, nil

	case ws.OpNotificationStatusChanged:
		var d models.NotificationStatus
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return NotificationStatusChanged{d}, nil

	case ws.OpNotificationsMarkedAsRead:
		var d ws.NotificationsMarkedAsReadData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return NotificationsMarkedAsRead{UnreadCount: d.UnreadCount, CountVersion: d.CountVersion}, nil

	case ws.OpNotificationDeleted:
		var d models.NotificationDeletion
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return NotificationDeleted{d}, nil

	case ws.OpAllNotificationsDeleted:
		var d ws.AllNotificationsDeletedData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return AllNotificationsDeleted{UnreadCount: d.UnreadCount, CountVersion: d.CountVersion}, nil

	case ws.OpNewComment, ws.OpCommentUpdated:
		var c models.Comment
		if err := unmarshal(raw, &c); err != nil {
			return nil, err
		}
		if op == ws.OpNewComment {
			return CommentCreated{Comment: c}, nil
		}
		return CommentUpdated{Comment: c}, nil

	case ws.OpCommentDeleted:
		var d ws.CommentDeletedData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return CommentDeleted{CommentID: d.CommentID, BookID: d.BookID, SenderID: d.SenderID}, nil

	case ws.OpBookInteractionUpdate:
		var d models.BookInteraction
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return InteractionUpdated{Interaction: d}, nil

	case ws.OpNewUser:
		var u models.User
		if err := unmarshal(raw, &u); err != nil {
			return nil, err
		}
		return UserRegistered{User: u}, nil

	case ws.OpNewBook:
		var b models.Book
		if err := unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return BookCreated{Book: b}, nil

	case ws.OpNewReport:
		var r models.Report
		if err := unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return ReportSubmitted{Report: r}, nil

	case ws.OpRoomJoined, ws.OpRoomLeft:
		var d ws.RoomData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		if op == ws.OpRoomJoined {
			return RoomJoined{Room: d.Room}, nil
		}
		return RoomLeft{Room: d.Room}, nil

	case ws.OpJoinDenied:
		var d ws.JoinDeniedData
		if err := unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return JoinDenied{Room: d.Room, Reason: d.Reason}, nil

	case ws.OpHeartbeatAck:
		return HeartbeatAck{}, nil
	}

	return Unknown{Name: op, Raw: raw}, nil
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	return json.Unmarshal(raw, v)
}
