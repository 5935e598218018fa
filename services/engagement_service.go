package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/ws"
)

// EngagementService owns comments and likes/dislikes of a book and keeps
// everyone viewing the book (room book:<id>) in sync.
//
// Comments are broadcast as full records. Interaction changes are
// broadcast as a freshly recomputed snapshot that receivers replace
// wholesale, never as deltas.
type EngagementService interface {
	CreateComment(ctx context.Context, bookID, senderID string, req *models.CommentRequest) (*models.Comment, error)
	UpdateComment(ctx context.Context, commentID, actorID string, req *models.CommentRequest) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID, actorID string, isAdmin bool) error
	ListComments(ctx context.Context, bookID string) ([]models.Comment, error)

	Like(ctx context.Context, bookID, userID string) (*models.BookInteraction, error)
	Unlike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error)
	Dislike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error)
	RemoveDislike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error)
	Interaction(ctx context.Context, bookID string) (*models.BookInteraction, error)
}

type engagementService struct {
	db            *sql.DB
	books         repository.BookRepository
	comments      repository.CommentRepository
	interactions  repository.InteractionRepository
	users         repository.UserRepository
	notifications NotificationService
	hub           ws.EventPublisher
	log           *zap.Logger

	// bookLocks orders snapshot publishes per book.
	bookLocks keyedMutex
}

func NewEngagementService(
	db *sql.DB,
	books repository.BookRepository,
	comments repository.CommentRepository,
	interactions repository.InteractionRepository,
	users repository.UserRepository,
	notifications NotificationService,
	hub ws.EventPublisher,
	log *zap.Logger,
) EngagementService {
	if log == nil {
		log = zap.NewNop()
	}
	return &engagementService{
		db:            db,
		books:         books,
		comments:      comments,
		interactions:  interactions,
		users:         users,
		notifications: notifications,
		hub:           hub,
		log:           log.Named("engagement"),
	}
}

func (s *engagementService) CreateComment(ctx context.Context, bookID, senderID string, req *models.CommentRequest) (*models.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{BookID: bookID, SenderID: senderID, Text: req.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.hub.Publish(ws.BookRoom(bookID), ws.Event{Op: ws.OpNewComment, Data: comment})

	// The comment is committed; a failed notification must not fail it.
	link := "/books/" + bookID
	itemType := models.RelatedItemComment
	commentID := comment.ID
	_, err = s.notifications.Notify(ctx, models.NotifyParams{
		RecipientID:     book.OwnerID,
		SenderID:        senderID,
		Type:            models.NotificationNewComment,
		Message:         fmt.Sprintf("%s commented on your book \"%s\"", senderName(comment.Sender, senderID), book.Title),
		Link:            &link,
		RelatedItemType: &itemType,
		RelatedItemID:   &commentID,
	})
	if err != nil {
		s.log.Warn("comment notification failed", zap.String("comment", comment.ID), zap.Error(err))
	}

	return comment, nil
}

func (s *engagementService) UpdateComment(ctx context.Context, commentID, actorID string, req *models.CommentRequest) (*models.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.SenderID != actorID {
		return nil, fmt.Errorf("%w: only the author can edit a comment", pkg.ErrForbidden)
	}

	if err := s.comments.UpdateText(ctx, commentID, req.Text); err != nil {
		return nil, err
	}

	updated, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.BookRoom(updated.BookID), ws.Event{Op: ws.OpCommentUpdated, Data: updated})
	return updated, nil
}

func (s *engagementService) DeleteComment(ctx context.Context, commentID, actorID string, isAdmin bool) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.SenderID != actorID && !isAdmin {
		return fmt.Errorf("%w: only the author or an admin can delete a comment", pkg.ErrForbidden)
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}

	s.hub.Publish(ws.BookRoom(comment.BookID), ws.Event{
		Op: ws.OpCommentDeleted,
		Data: ws.CommentDeletedData{
			CommentID: comment.ID,
			BookID:    comment.BookID,
			SenderID:  actorID,
		},
	})
	return nil
}

func (s *engagementService) ListComments(ctx context.Context, bookID string) ([]models.Comment, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.comments.ListByBook(ctx, bookID)
}

func (s *engagementService) Like(ctx context.Context, bookID, userID string) (*models.BookInteraction, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	added, snapshot, err := s.toggle(ctx, bookID, userID, models.InteractionLike, true)
	if err != nil {
		return nil, err
	}

	if added {
		s.notifyLike(ctx, book, userID)
	}
	return snapshot, nil
}

func (s *engagementService) Unlike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error) {
	return s.change(ctx, bookID, userID, models.InteractionLike, false)
}

func (s *engagementService) Dislike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error) {
	return s.change(ctx, bookID, userID, models.InteractionDislike, true)
}

func (s *engagementService) RemoveDislike(ctx context.Context, bookID, userID string) (*models.BookInteraction, error) {
	return s.change(ctx, bookID, userID, models.InteractionDislike, false)
}

func (s *engagementService) Interaction(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.interactions.Snapshot(ctx, bookID)
}

func (s *engagementService) change(ctx context.Context, bookID, userID string, kind models.InteractionKind, add bool) (*models.BookInteraction, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	_, snapshot, err := s.toggle(ctx, bookID, userID, kind, add)
	return snapshot, err
}

// toggle applies one interaction write and recomputes the snapshot in the
// same transaction. Adding a like removes the user's dislike and vice
// versa. The snapshot is broadcast after commit even when nothing changed,
// which keeps a client that raced itself converging on the stored state.
//
// The per-book lock spans the transaction and the publish, so snapshots
// reach the room in commit order and the last one is the stored state.
func (s *engagementService) toggle(ctx context.Context, bookID, userID string, kind models.InteractionKind, add bool) (bool, *models.BookInteraction, error) {
	unlock := s.bookLocks.lock(bookID)
	defer unlock()

	var (
		changed  bool
		snapshot *models.BookInteraction
	)

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteInteractionRepo(tx)

		var err error
		if add {
			changed, err = repo.Add(ctx, kind, bookID, userID)
			if err != nil {
				return err
			}
			if _, err := repo.Remove(ctx, opposite(kind), bookID, userID); err != nil {
				return err
			}
		} else {
			changed, err = repo.Remove(ctx, kind, bookID, userID)
			if err != nil {
				return err
			}
		}

		snapshot, err = repo.Snapshot(ctx, bookID)
		return err
	})
	if err != nil {
		return false, nil, err
	}

	s.hub.Publish(ws.BookRoom(bookID), ws.Event{Op: ws.OpBookInteractionUpdate, Data: snapshot})
	return changed, snapshot, nil
}

func (s *engagementService) notifyLike(ctx context.Context, book *models.Book, likerID string) {
	name := likerID
	if liker, err := s.users.GetByID(ctx, likerID); err == nil {
		name = liker.Username
	} else if !errors.Is(err, pkg.ErrNotFound) {
		s.log.Warn("like notification: sender lookup failed", zap.String("user", likerID), zap.Error(err))
	}

	link := "/books/" + book.ID
	itemType := models.RelatedItemBook
	bookID := book.ID
	_, err := s.notifications.Notify(ctx, models.NotifyParams{
		RecipientID:     book.OwnerID,
		SenderID:        likerID,
		Type:            models.NotificationNewLikeOnBook,
		Message:         fmt.Sprintf("%s liked your book \"%s\"", name, book.Title),
		Link:            &link,
		RelatedItemType: &itemType,
		RelatedItemID:   &bookID,
	})
	if err != nil {
		s.log.Warn("like notification failed", zap.String("book", book.ID), zap.Error(err))
	}
}

func opposite(kind models.InteractionKind) models.InteractionKind {
	if kind == models.InteractionLike {
		return models.InteractionDislike
	}
	return models.InteractionLike
}

func senderName(sender *models.UserSummary, fallback string) string {
	if sender != nil && sender.Username != "" {
		return sender.Username
	}
	return fallback
}
