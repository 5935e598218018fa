package services

import (
	"context"
	"fmt"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/repository"
)

type BookService interface {
	Create(ctx context.Context, ownerID string, req *models.CreateBookRequest) (*models.Book, error)
	Get(ctx context.Context, bookID string) (*models.Book, error)
	List(ctx context.Context, page models.PageParams) ([]models.Book, error)
}

type bookService struct {
	books repository.BookRepository
	feed  *AdminFeed
}

func NewBookService(books repository.BookRepository, feed *AdminFeed) BookService {
	return &bookService{books: books, feed: feed}
}

func (s *bookService) Create(ctx context.Context, ownerID string, req *models.CreateBookRequest) (*models.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	book := &models.Book{
		OwnerID:     ownerID,
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Genre:       req.Genre,
		CoverURL:    req.CoverURL,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.BookCreated(*book)
	}
	return book, nil
}

func (s *bookService) Get(ctx context.Context, bookID string) (*models.Book, error) {
	return s.books.GetByID(ctx, bookID)
}

func (s *bookService) List(ctx context.Context, page models.PageParams) ([]models.Book, error) {
	page.Normalize()
	return s.books.List(ctx, page.Limit, page.Offset())
}
