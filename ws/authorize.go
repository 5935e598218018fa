package ws

import (
	"context"
	"fmt"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg/cache"
)

// Identity is the authenticated caller behind a connection, taken from the
// token at upgrade time.
type Identity struct {
	UserID   string
	Username string
	Role     models.UserRole
}

// RoomAuthorizer decides whether identity may join room. A
// *JoinDeniedError is a normal refusal; any other error is an
// infrastructure failure.
type RoomAuthorizer interface {
	Authorize(ctx context.Context, identity Identity, room string) error
}

type JoinDeniedError struct {
	Reason string
}

func (e *JoinDeniedError) Error() string { return e.Reason }

func denied(reason string) error { return &JoinDeniedError{Reason: reason} }

// BookLookup is satisfied by repository.BookRepository.
type BookLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type roomAuthorizer struct {
	books BookLookup
	known *cache.TTLCache[string, bool]
}

// NewRoomAuthorizer enforces:
//   - user:<id> only for the same authenticated user
//   - admin only for role admin
//   - book:<id> only for an existing book
//
// known caches positive book lookups; it may be nil.
func NewRoomAuthorizer(books BookLookup, known *cache.TTLCache[string, bool]) RoomAuthorizer {
	return &roomAuthorizer{books: books, known: known}
}

func (a *roomAuthorizer) Authorize(ctx context.Context, identity Identity, room string) error {
	kind, id, ok := ParseRoom(room)
	if !ok {
		return denied("unknown room")
	}

	switch kind {
	case RoomKindUser:
		if id != identity.UserID {
			return denied("cannot join another user's room")
		}
		return nil

	case RoomKindAdmin:
		if identity.Role != models.RoleAdmin {
			return denied("admin role required")
		}
		return nil

	case RoomKindBook:
		return a.authorizeBook(ctx, id)
	}
	return denied("unknown room")
}

func (a *roomAuthorizer) authorizeBook(ctx context.Context, bookID string) error {
	if a.known != nil {
		if _, hit := a.known.Get(bookID); hit {
			return nil
		}
	}

	exists, err := a.books.Exists(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to look up book: %w", err)
	}
	if !exists {
		return denied("book not found")
	}

	if a.known != nil {
		a.known.Set(bookID, true)
	}
	return nil
}
