package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength is the rune limit of a comment body.
const MaxCommentLength = 1000

// Comment is a comment on a book. SenderID is the author; receivers of
// book room events compare it with their own id to skip echoes of their
// own optimistic inserts.
type Comment struct {
	ID        string       `json:"id"`
	BookID    string       `json:"bookId"`
	SenderID  string       `json:"senderId"`
	Sender    *UserSummary `json:"sender,omitempty"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CommentRequest is the body of comment create and update.
type CommentRequest struct {
	Text string `json:"text"`
}

// Validate trims and length-checks the comment body.
func (r *CommentRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	n := utf8.RuneCountInString(r.Text)
	if n == 0 || n > MaxCommentLength {
		return fmt.Errorf("comment must be between 1 and %d characters", MaxCommentLength)
	}
	return nil
}
