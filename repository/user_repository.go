package repository

import (
	"context"

	"github.com/bookshelf/server/models"
)

type UserRepository interface {
	// Create fills user.ID and user.CreatedAt. Duplicate username or email
	// yields pkg.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}
