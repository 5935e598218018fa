package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/repository"
)

// FollowService manages follow edges. A new edge notifies the followee;
// a repeated follow is a no-op and notifies nobody.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

type followService struct {
	follows       repository.FollowRepository
	users         repository.UserRepository
	notifications NotificationService
	log           *zap.Logger
}

func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	notifications NotificationService,
	log *zap.Logger,
) FollowService {
	if log == nil {
		log = zap.NewNop()
	}
	return &followService{
		follows:       follows,
		users:         users,
		notifications: notifications,
		log:           log.Named("follow"),
	}
}

func (s *followService) Follow(ctx context.Context, followerID, followeeID string) error {
	if _, err := s.users.GetByID(ctx, followeeID); err != nil {
		return err
	}
	follower, err := s.users.GetByID(ctx, followerID)
	if err != nil {
		return err
	}

	created, err := s.follows.Create(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	// Self-follows are stored; Notify drops the self notification.
	link := "/users/" + followerID
	itemType := models.RelatedItemUser
	_, err = s.notifications.Notify(ctx, models.NotifyParams{
		RecipientID:     followeeID,
		SenderID:        followerID,
		Type:            models.NotificationNewFollower,
		Message:         fmt.Sprintf("%s started following you", follower.Username),
		Link:            &link,
		RelatedItemType: &itemType,
		RelatedItemID:   &followerID,
	})
	if err != nil {
		s.log.Warn("follow notification failed",
			zap.String("follower", followerID),
			zap.String("followee", followeeID),
			zap.Error(err))
	}
	return nil
}

func (s *followService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.follows.Delete(ctx, followerID, followeeID)
	return err
}
