package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Book is a shared book listing.
type Book struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Genre       string    `json:"genre"`
	CoverURL    *string   `json:"coverUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateBookRequest is the body of POST /books.
type CreateBookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Genre       string  `json:"genre"`
	CoverURL    *string `json:"coverUrl"`
}

// Validate trims and checks the fields of a new book.
func (r *CreateBookRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Genre = strings.TrimSpace(r.Genre)
	r.Description = strings.TrimSpace(r.Description)

	if r.Title == "" || utf8.RuneCountInString(r.Title) > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}
	if r.Author == "" || utf8.RuneCountInString(r.Author) > 120 {
		return fmt.Errorf("author must be between 1 and 120 characters")
	}
	if utf8.RuneCountInString(r.Description) > 4000 {
		return fmt.Errorf("description must be at most 4000 characters")
	}
	return nil
}

// BookInteraction is the live like/dislike state of a book. It is always
// recomputed from the store and replaces the receiver's copy wholesale.
type BookInteraction struct {
	BookID       string   `json:"bookId"`
	LikeCount    int      `json:"likeCount"`
	DislikeCount int      `json:"dislikeCount"`
	LikedBy      []string `json:"likedBy"`
	DislikedBy   []string `json:"dislikedBy"`
}

// InteractionKind distinguishes likes from dislikes in the store.
type InteractionKind string

const (
	InteractionLike    InteractionKind = "like"
	InteractionDislike InteractionKind = "dislike"
)
