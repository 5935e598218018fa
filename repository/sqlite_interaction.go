package repository

import (
	"context"
	"fmt"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
)

type sqliteInteractionRepo struct {
	db database.TxQuerier
}

func NewSQLiteInteractionRepo(db database.TxQuerier) InteractionRepository {
	return &sqliteInteractionRepo{db: db}
}

func interactionTable(kind models.InteractionKind) (string, error) {
	switch kind {
	case models.InteractionLike:
		return "book_likes", nil
	case models.InteractionDislike:
		return "book_dislikes", nil
	}
	return "", fmt.Errorf("%w: unknown interaction %q", pkg.ErrBadRequest, kind)
}

// Add uses INSERT OR IGNORE so the primary key decides whether the row
// was new.
func (r *sqliteInteractionRepo) Add(ctx context.Context, kind models.InteractionKind, bookID, userID string) (bool, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+table+` (book_id, user_id) VALUES (?, ?)`, bookID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, pkg.ErrNotFound
		}
		return false, fmt.Errorf("failed to add %s: %w", kind, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *sqliteInteractionRepo) Remove(ctx context.Context, kind models.InteractionKind, bookID, userID string) (bool, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE book_id = ? AND user_id = ?`, bookID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", kind, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// Snapshot recomputes counts and user lists from the rows; counts are
// never stored.
func (r *sqliteInteractionRepo) Snapshot(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	liked, err := r.userIDs(ctx, "book_likes", bookID)
	if err != nil {
		return nil, err
	}
	disliked, err := r.userIDs(ctx, "book_dislikes", bookID)
	if err != nil {
		return nil, err
	}

	return &models.BookInteraction{
		BookID:       bookID,
		LikeCount:    len(liked),
		DislikeCount: len(disliked),
		LikedBy:      liked,
		DislikedBy:   disliked,
	}, nil
}

func (r *sqliteInteractionRepo) userIDs(ctx context.Context, table, bookID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM `+table+` WHERE book_id = ? ORDER BY created_at, rowid`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, err)
	}
	return ids, nil
}
