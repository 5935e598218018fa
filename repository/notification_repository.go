package repository

import (
	"context"

	"github.com/bookshelf/server/models"
)

// NotificationRepository is the durable notification store and the source
// of truth for unread counts.
//
// Every recipient-scoped write matches on (id, recipient_id), so a record
// owned by someone else behaves exactly like a missing one.
type NotificationRepository interface {
	// Create fills ID and CreatedAt; the record starts unread.
	Create(ctx context.Context, n *models.Notification) error
	// GetView resolves sender and related item for the broadcast payload.
	GetView(ctx context.Context, id string) (*models.NotificationView, error)
	// SetRead transitions is_read only when it differs from isRead.
	// Missing, foreign or already-in-state records yield pkg.ErrNotFound.
	SetRead(ctx context.Context, recipientID, id string, isRead bool) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, id string) error
	DeleteAll(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	// UnreadState reads the count and its version in one snapshot.
	UnreadState(ctx context.Context, recipientID string) (models.UnreadState, error)
	// BumpUnreadState advances the recipient's version and returns it with
	// the count as of that version. Call it after each write.
	BumpUnreadState(ctx context.Context, recipientID string) (models.UnreadState, error)
	// ListByRecipient returns one page newest first and the total number
	// of rows matching filter.
	ListByRecipient(ctx context.Context, recipientID string, filter models.NotificationFilter, page models.PageParams) ([]models.NotificationView, int, error)
}
