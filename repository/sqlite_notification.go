package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
)

type sqliteNotificationRepo struct {
	db database.TxQuerier
}

func NewSQLiteNotificationRepo(db database.TxQuerier) NotificationRepository {
	return &sqliteNotificationRepo{db: db}
}

// notificationViewSelect resolves the related item per type. A comment
// borrows the cover of the book it was written on.
const notificationViewSelect = `
	SELECT n.id, n.recipient_id, n.sender_id, n.type, n.message, n.link,
	       n.related_item_type, n.related_item_id, n.is_read, n.created_at,
	       s.username, s.avatar_url,
	       CASE n.related_item_type
	           WHEN 'book' THEN b.title
	           WHEN 'user' THEN ru.username
	           WHEN 'comment' THEN c.text
	       END,
	       CASE n.related_item_type
	           WHEN 'book' THEN b.cover_url
	           WHEN 'user' THEN ru.avatar_url
	           WHEN 'comment' THEN cb.cover_url
	       END
	FROM notifications n
	LEFT JOIN users s ON s.id = n.sender_id
	LEFT JOIN books b ON n.related_item_type = 'book' AND b.id = n.related_item_id
	LEFT JOIN users ru ON n.related_item_type = 'user' AND ru.id = n.related_item_id
	LEFT JOIN comments c ON n.related_item_type = 'comment' AND c.id = n.related_item_id
	LEFT JOIN books cb ON cb.id = c.book_id`

func scanNotificationView(s rowScanner) (*models.NotificationView, error) {
	var (
		v            models.NotificationView
		link         sql.NullString
		relatedType  sql.NullString
		relatedID    sql.NullString
		senderName   sql.NullString
		senderAvatar sql.NullString
		relatedTitle sql.NullString
		relatedCover sql.NullString
	)
	err := s.Scan(
		&v.ID, &v.RecipientID, &v.SenderID, &v.Type, &v.Message, &link,
		&relatedType, &relatedID, &v.IsRead, &v.CreatedAt,
		&senderName, &senderAvatar, &relatedTitle, &relatedCover,
	)
	if err != nil {
		return nil, err
	}

	v.Link = nullStringPtr(link)
	v.RelatedItemID = nullStringPtr(relatedID)
	if relatedType.Valid {
		t := models.RelatedItemType(relatedType.String)
		v.RelatedItemType = &t
	}
	if senderName.Valid {
		v.Sender = &models.UserSummary{ID: v.SenderID, Username: senderName.String, AvatarURL: nullStringPtr(senderAvatar)}
	}
	if relatedType.Valid && relatedID.Valid && relatedTitle.Valid {
		v.RelatedItem = &models.RelatedItem{
			ID:       relatedID.String,
			Type:     models.RelatedItemType(relatedType.String),
			Title:    relatedTitle.String,
			CoverURL: nullStringPtr(relatedCover),
		}
	}
	return &v, nil
}

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, sender_id, type, message, link, related_item_type, related_item_id, is_read)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?, ?, 0)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		n.RecipientID, n.SenderID, n.Type, n.Message, n.Link, n.RelatedItemType, n.RelatedItemID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown recipient or sender", pkg.ErrNotFound)
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.IsRead = false
	return nil
}

func (r *sqliteNotificationRepo) GetView(ctx context.Context, id string) (*models.NotificationView, error) {
	v, err := scanNotificationView(r.db.QueryRowContext(ctx, notificationViewSelect+` WHERE n.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return v, nil
}

func (r *sqliteNotificationRepo) SetRead(ctx context.Context, recipientID, id string, isRead bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ? AND is_read = ?`,
		isRead, id, recipientID, !isRead)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return requireAffected(result)
}

func (r *sqliteNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteNotificationRepo) Delete(ctx context.Context, recipientID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND recipient_id = ?`, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireAffected(result)
}

func (r *sqliteNotificationRepo) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, recipientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *sqliteNotificationRepo) UnreadState(ctx context.Context, recipientID string) (models.UnreadState, error) {
	var state models.UnreadState
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT version FROM notification_counters WHERE recipient_id = ?), 0),
		       (SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0)`,
		recipientID, recipientID,
	).Scan(&state.Version, &state.Count)
	if err != nil {
		return models.UnreadState{}, fmt.Errorf("failed to read unread state: %w", err)
	}
	return state, nil
}

// BumpUnreadState is a single statement, so the version and the count it
// returns come from the same write lock.
func (r *sqliteNotificationRepo) BumpUnreadState(ctx context.Context, recipientID string) (models.UnreadState, error) {
	var state models.UnreadState
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notification_counters (recipient_id, version) VALUES (?, 1)
		ON CONFLICT (recipient_id) DO UPDATE SET version = version + 1
		RETURNING version,
		          (SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0)`,
		recipientID, recipientID,
	).Scan(&state.Version, &state.Count)
	if err != nil {
		return models.UnreadState{}, fmt.Errorf("failed to bump unread state: %w", err)
	}
	return state, nil
}

func filterClause(filter models.NotificationFilter) string {
	switch filter {
	case models.FilterUnread:
		return ` AND n.is_read = 0`
	case models.FilterRead:
		return ` AND n.is_read = 1`
	}
	return ""
}

func (r *sqliteNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, filter models.NotificationFilter, page models.PageParams) ([]models.NotificationView, int, error) {
	page.Normalize()
	where := ` WHERE n.recipient_id = ?` + filterClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications n`+where, recipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		notificationViewSelect+where+` ORDER BY n.created_at DESC, n.rowid DESC LIMIT ? OFFSET ?`,
		recipientID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	views := []models.NotificationView{}
	for rows.Next() {
		v, err := scanNotificationView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification row: %w", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return views, total, nil
}
