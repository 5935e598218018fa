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

type sqliteBookRepo struct {
	db database.TxQuerier
}

func NewSQLiteBookRepo(db database.TxQuerier) BookRepository {
	return &sqliteBookRepo{db: db}
}

const bookColumns = `id, owner_id, title, author, description, genre, cover_url, created_at`

func (r *sqliteBookRepo) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (id, owner_id, title, author, description, genre, cover_url)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		book.OwnerID, book.Title, book.Author, book.Description, book.Genre, book.CoverURL,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner does not exist", pkg.ErrBadRequest)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

func (r *sqliteBookRepo) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var (
		book  models.Book
		cover sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id).Scan(
		&book.ID, &book.OwnerID, &book.Title, &book.Author, &book.Description, &book.Genre, &cover, &book.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	book.CoverURL = nullStringPtr(cover)
	return &book, nil
}

func (r *sqliteBookRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check book: %w", err)
	}
	return exists, nil
}

func (r *sqliteBookRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

func (r *sqliteBookRepo) List(ctx context.Context, limit, offset int) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var (
			book  models.Book
			cover sql.NullString
		)
		if err := rows.Scan(
			&book.ID, &book.OwnerID, &book.Title, &book.Author, &book.Description, &book.Genre, &cover, &book.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		book.CoverURL = nullStringPtr(cover)
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}
	return books, nil
}
