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

type sqliteCommentRepo struct {
	db database.TxQuerier
}

func NewSQLiteCommentRepo(db database.TxQuerier) CommentRepository {
	return &sqliteCommentRepo{db: db}
}

const commentSelect = `
	SELECT c.id, c.book_id, c.sender_id, c.text, c.created_at, c.updated_at,
	       u.username, u.avatar_url
	FROM comments c
	LEFT JOIN users u ON u.id = c.sender_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(s rowScanner) (*models.Comment, error) {
	var (
		c        models.Comment
		username sql.NullString
		avatar   sql.NullString
	)
	if err := s.Scan(&c.ID, &c.BookID, &c.SenderID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &username, &avatar); err != nil {
		return nil, err
	}
	if username.Valid {
		c.Sender = &models.UserSummary{ID: c.SenderID, Username: username.String, AvatarURL: nullStringPtr(avatar)}
	}
	return &c, nil
}

// Create fills ID, timestamps and Sender. A missing book or sender yields
// pkg.ErrNotFound.
func (r *sqliteCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, book_id, sender_id, text)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?)
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, comment.BookID, comment.SenderID, comment.Text).Scan(&comment.ID); err != nil {
		if isForeignKeyViolation(err) {
			return pkg.ErrNotFound
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := r.GetByID(ctx, comment.ID)
	if err != nil {
		return err
	}
	*comment = *created
	return nil
}

func (r *sqliteCommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (r *sqliteCommentRepo) UpdateText(ctx context.Context, id, text string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET text = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return requireAffected(result)
}

func (r *sqliteCommentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return requireAffected(result)
}

func (r *sqliteCommentRepo) ListByBook(ctx context.Context, bookID string) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		commentSelect+` WHERE c.book_id = ? ORDER BY c.created_at ASC, c.rowid ASC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}
	return comments, nil
}

// requireAffected turns a zero-row write into pkg.ErrNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
