package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/pkg/email"
	"github.com/bookshelf/server/pkg/metrics"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/ws"
)

// NotificationService is the only writer of notifications. Every mutation
// re-queries the unread count after the write and broadcasts that value to
// user:<recipient>; a counter is never adjusted in memory. Each count is
// stamped with the recipient's version so clients can drop stale ones.
type NotificationService interface {
	// Notify returns (nil, nil) for a self-follow.
	Notify(ctx context.Context, params models.NotifyParams) (*models.NotificationView, error)
	MarkOneRead(ctx context.Context, recipientID, notificationID string) (*models.NotificationStatus, error)
	MarkOneUnread(ctx context.Context, recipientID, notificationID string) (*models.NotificationStatus, error)
	MarkAllRead(ctx context.Context, recipientID string) (*models.UnreadCountResult, error)
	DeleteOne(ctx context.Context, recipientID, notificationID string) (*models.NotificationDeletion, error)
	DeleteAll(ctx context.Context, recipientID string) (*models.UnreadCountResult, error)
	List(ctx context.Context, recipientID string, filter models.NotificationFilter, page models.PageParams) (*models.NotificationPage, error)
	UnreadCount(ctx context.Context, recipientID string) (*models.UnreadCountResult, error)
}

const emailTimeout = 10 * time.Second

type notificationService struct {
	repo    repository.NotificationRepository
	users   repository.UserRepository
	hub     ws.EventPublisher
	mailer  email.Sender
	metrics *metrics.Metrics
	log     *zap.Logger

	// Write, count and publish run under the recipient's lock so the
	// counts a recipient sees are broadcast in store order.
	recipients keyedMutex
}

// NewNotificationService wires the fan-out. mailer may be nil to disable
// notification emails.
func NewNotificationService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	hub ws.EventPublisher,
	mailer email.Sender,
	m *metrics.Metrics,
	log *zap.Logger,
) NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &notificationService{
		repo:    repo,
		users:   users,
		hub:     hub,
		mailer:  mailer,
		metrics: m,
		log:     log.Named("notification"),
	}
}

func (s *notificationService) Notify(ctx context.Context, params models.NotifyParams) (view *models.NotificationView, err error) {
	defer func() { s.metrics.NotificationOp("notify", err) }()

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if params.RecipientID == params.SenderID && params.Type == models.NotificationNewFollower {
		return nil, nil
	}

	unlock := s.recipients.lock(params.RecipientID)
	defer unlock()

	n := &models.Notification{
		RecipientID:     params.RecipientID,
		SenderID:        params.SenderID,
		Type:            params.Type,
		Message:         params.Message,
		Link:            params.Link,
		RelatedItemType: params.RelatedItemType,
		RelatedItemID:   params.RelatedItemID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	view, err = s.repo.GetView(ctx, n.ID)
	if err != nil {
		return nil, err
	}

	state, err := s.repo.BumpUnreadState(ctx, params.RecipientID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.UserRoom(params.RecipientID), ws.Event{
		Op: ws.OpNewNotification,
		Data: ws.NewNotificationData{
			NotificationView: *view,
			UnreadCount:      state.Count,
			CountVersion:     state.Version,
		},
	})

	if s.mailer != nil {
		go s.sendEmail(*view)
	}

	return view, nil
}

func (s *notificationService) MarkOneRead(ctx context.Context, recipientID, notificationID string) (*models.NotificationStatus, error) {
	status, err := s.setRead(ctx, recipientID, notificationID, true)
	s.metrics.NotificationOp("mark_read", err)
	return status, err
}

func (s *notificationService) MarkOneUnread(ctx context.Context, recipientID, notificationID string) (*models.NotificationStatus, error) {
	status, err := s.setRead(ctx, recipientID, notificationID, false)
	s.metrics.NotificationOp("mark_unread", err)
	return status, err
}

// setRead fails with pkg.ErrNotFound when the record is missing, owned by
// someone else or already in the requested state; nothing is broadcast
// in that case.
func (s *notificationService) setRead(ctx context.Context, recipientID, notificationID string, isRead bool) (*models.NotificationStatus, error) {
	unlock := s.recipients.lock(recipientID)
	defer unlock()

	if err := s.repo.SetRead(ctx, recipientID, notificationID, isRead); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: notification not found", pkg.ErrNotFound)
		}
		return nil, err
	}

	state, err := s.repo.BumpUnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	status := &models.NotificationStatus{
		NotificationID: notificationID,
		IsRead:         isRead,
		UnreadCount:    state.Count,
		CountVersion:   state.Version,
	}
	s.hub.Publish(ws.UserRoom(recipientID), ws.Event{Op: ws.OpNotificationStatusChanged, Data: status})
	return status, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID string) (result *models.UnreadCountResult, err error) {
	defer func() { s.metrics.NotificationOp("mark_all_read", err) }()

	unlock := s.recipients.lock(recipientID)
	defer unlock()

	if _, err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return nil, err
	}

	state, err := s.repo.BumpUnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.UserRoom(recipientID), ws.Event{
		Op:   ws.OpNotificationsMarkedAsRead,
		Data: ws.NotificationsMarkedAsReadData{UnreadCount: state.Count, CountVersion: state.Version},
	})
	return &models.UnreadCountResult{UnreadCount: state.Count, CountVersion: state.Version}, nil
}

func (s *notificationService) DeleteOne(ctx context.Context, recipientID, notificationID string) (result *models.NotificationDeletion, err error) {
	defer func() { s.metrics.NotificationOp("delete", err) }()

	unlock := s.recipients.lock(recipientID)
	defer unlock()

	if err := s.repo.Delete(ctx, recipientID, notificationID); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: notification not found", pkg.ErrNotFound)
		}
		return nil, err
	}

	state, err := s.repo.BumpUnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	result = &models.NotificationDeletion{
		NotificationID: notificationID,
		UnreadCount:    state.Count,
		CountVersion:   state.Version,
	}
	s.hub.Publish(ws.UserRoom(recipientID), ws.Event{Op: ws.OpNotificationDeleted, Data: result})
	return result, nil
}

func (s *notificationService) DeleteAll(ctx context.Context, recipientID string) (result *models.UnreadCountResult, err error) {
	defer func() { s.metrics.NotificationOp("delete_all", err) }()

	unlock := s.recipients.lock(recipientID)
	defer unlock()

	if _, err := s.repo.DeleteAll(ctx, recipientID); err != nil {
		return nil, err
	}

	state, err := s.repo.BumpUnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.UserRoom(recipientID), ws.Event{
		Op:   ws.OpAllNotificationsDeleted,
		Data: ws.AllNotificationsDeletedData{UnreadCount: state.Count, CountVersion: state.Version},
	})
	return &models.UnreadCountResult{UnreadCount: state.Count, CountVersion: state.Version}, nil
}

func (s *notificationService) List(ctx context.Context, recipientID string, filter models.NotificationFilter, page models.PageParams) (*models.NotificationPage, error) {
	page.Normalize()

	views, total, err := s.repo.ListByRecipient(ctx, recipientID, filter, page)
	if err != nil {
		return nil, err
	}

	state, err := s.repo.UnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &models.NotificationPage{
		Notifications: views,
		UnreadCount:   state.Count,
		CountVersion:  state.Version,
		TotalPages:    models.TotalPages(total, page.Limit),
		Page:          page.Page,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID string) (*models.UnreadCountResult, error) {
	state, err := s.repo.UnreadState(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	return &models.UnreadCountResult{UnreadCount: state.Count, CountVersion: state.Version}, nil
}

// sendEmail runs after the broadcast on its own goroutine; failures are
// logged and never reach the caller.
func (s *notificationService) sendEmail(view models.NotificationView) {
	ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
	defer cancel()

	recipient, err := s.users.GetByID(ctx, view.RecipientID)
	if err != nil {
		s.log.Warn("notification email: recipient lookup failed", zap.String("notification", view.ID), zap.Error(err))
		return
	}
	if recipient.Email == nil || *recipient.Email == "" {
		return
	}

	msg := email.Message{
		To:      *recipient.Email,
		Subject: emailSubject(view.Type),
		Body:    view.Message,
	}
	if view.Link != nil {
		msg.Link = *view.Link
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("notification email failed", zap.String("notification", view.ID), zap.Error(err))
	}
}

func emailSubject(t models.NotificationType) string {
	switch t {
	case models.NotificationNewFollower:
		return "You have a new follower"
	case models.NotificationNewComment:
		return "New comment on your book"
	case models.NotificationNewLikeOnBook:
		return "Someone liked your book"
	}
	return "New notification"
}
