package repository

import (
	"context"

	"github.com/bookshelf/server/models"
)

// CommentRepository returns comments with Sender resolved.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	ListByBook(ctx context.Context, bookID string) ([]models.Comment, error)
}
