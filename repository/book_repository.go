package repository

import (
	"context"

	"github.com/bookshelf/server/models"
)

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id string) (*models.Book, error)
	// Exists backs the book room join check.
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]models.Book, error)
	Count(ctx context.Context) (int, error)
}

// InteractionRepository stores likes and dislikes as one row per user.
// Add and Remove report whether a row actually changed.
type InteractionRepository interface {
	Add(ctx context.Context, kind models.InteractionKind, bookID, userID string) (bool, error)
	Remove(ctx context.Context, kind models.InteractionKind, bookID, userID string) (bool, error)
	Snapshot(ctx context.Context, bookID string) (*models.BookInteraction, error)
}
