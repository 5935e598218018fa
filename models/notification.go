package models

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType is the closed set of triggers that create a notification.
type NotificationType string

const (
	NotificationNewFollower   NotificationType = "new_follower"
	NotificationNewComment    NotificationType = "new_comment"
	NotificationNewLikeOnBook NotificationType = "new_like_on_book"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewFollower, NotificationNewComment, NotificationNewLikeOnBook:
		return true
	}
	return false
}

// RelatedItemType names the kind of record a notification points at.
type RelatedItemType string

const (
	RelatedItemBook    RelatedItemType = "book"
	RelatedItemComment RelatedItemType = "comment"
	RelatedItemUser    RelatedItemType = "user"
)

// Notification is the persisted record. IsRead only changes through the
// explicit read/unread operations; a deleted notification never comes back.
type Notification struct {
	ID              string           `json:"id"`
	RecipientID     string           `json:"recipientId"`
	SenderID        string           `json:"senderId"`
	Type            NotificationType `json:"type"`
	Message         string           `json:"message"`
	Link            *string          `json:"link,omitempty"`
	RelatedItemType *RelatedItemType `json:"relatedItemType,omitempty"`
	RelatedItemID   *string          `json:"relatedItemId,omitempty"`
	IsRead          bool             `json:"isRead"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// RelatedItem is the resolved display form of Notification.RelatedItemID.
type RelatedItem struct {
	ID       string          `json:"id"`
	Type     RelatedItemType `json:"type"`
	Title    string          `json:"title"`
	CoverURL *string         `json:"coverUrl,omitempty"`
}

// NotificationView is a notification with sender and related item resolved.
// This is what the REST list and the newNotification push carry.
type NotificationView struct {
	Notification
	Sender      *UserSummary `json:"sender,omitempty"`
	RelatedItem *RelatedItem `json:"relatedItem,omitempty"`
}

// NotifyParams is the input of the fan-out service's notify operation.
type NotifyParams struct {
	RecipientID     string
	SenderID        string
	Type            NotificationType
	Message         string
	Link            *string
	RelatedItemType *RelatedItemType
	RelatedItemID   *string
}

// Validate checks the mandatory fields.
func (p *NotifyParams) Validate() error {
	if p.RecipientID == "" {
		return fmt.Errorf("recipient is required")
	}
	if p.SenderID == "" {
		return fmt.Errorf("sender is required")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", p.Type)
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// NotificationFilter selects which records a list query returns.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = "all"
	FilterUnread NotificationFilter = "unread"
	FilterRead   NotificationFilter = "read"
)

// ParseNotificationFilter maps the ?filter= query value; unknown or empty
// values fall back to FilterAll.
func ParseNotificationFilter(s string) NotificationFilter {
	switch NotificationFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterUnread:
		return FilterUnread
	case FilterRead:
		return FilterRead
	default:
		return FilterAll
	}
}

// Pagination defaults for notification listing.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageParams is a 1-based page request.
type PageParams struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into their valid ranges.
func (p *PageParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// Offset is the number of rows skipped for the current page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns how many pages of size limit cover total rows.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// NotificationPage is the body of GET /notifications.
type NotificationPage struct {
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
	CountVersion  int64              `json:"countVersion"`
	TotalPages    int                `json:"totalPages"`
	Page          int                `json:"page"`
}

// NotificationStatus is returned by single-record read/unread mutations.
type NotificationStatus struct {
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"isRead"`
	UnreadCount    int    `json:"unreadCount"`
	CountVersion   int64  `json:"countVersion"`
}

// UnreadCountResult carries a freshly queried unread count.
type UnreadCountResult struct {
	UnreadCount  int   `json:"unreadCount"`
	CountVersion int64 `json:"countVersion"`
}

// NotificationDeletion is returned by single-record deletion.
type NotificationDeletion struct {
	NotificationID string `json:"notificationId"`
	UnreadCount    int    `json:"unreadCount"`
	CountVersion   int64  `json:"countVersion"`
}

// UnreadState is a recipient's unread count with the version it was read
// at. Versions grow by one with every notification write of that
// recipient, so of two states the one with the higher version is newer.
type UnreadState struct {
	Count   int
	Version int64
}
