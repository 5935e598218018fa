package client

import (
	"sync"

	"github.com/bookshelf/server/models"
)

// BookView is the live state of one open book screen: its comments and
// its like/dislike snapshot.
//
// Comment events whose sender is the local user are skipped, since the
// local client already applied them optimistically. Interaction updates
// always replace the snapshot wholesale.
type BookView struct {
	mu          sync.RWMutex
	bookID      string
	selfID      string
	comments    []models.Comment
	interaction *models.BookInteraction
}

func NewBookView(bookID, selfID string) *BookView {
	return &BookView{bookID: bookID, selfID: selfID}
}

func (v *BookView) BookID() string { return v.bookID }

// LoadComments installs the REST listing, oldest first.
func (v *BookView) LoadComments(comments []models.Comment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.comments = append([]models.Comment(nil), comments...)
}

// AddLocalComment appends the user's own comment once the create call
// returns.
func (v *BookView) AddLocalComment(c models.Comment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index(c.ID) < 0 {
		v.comments = append(v.comments, c)
	}
}

// RemoveLocalComment drops a comment the user deleted.
func (v *BookView) RemoveLocalComment(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(id); i >= 0 {
		v.comments = append(v.comments[:i], v.comments[i+1:]...)
	}
}

// ApplyCommentCreated reports whether the comment was added.
func (v *BookView) ApplyCommentCreated(c models.Comment) bool {
	if c.BookID != v.bookID || c.SenderID == v.selfID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index(c.ID) >= 0 {
		return false
	}
	v.comments = append(v.comments, c)
	return true
}

func (v *BookView) ApplyCommentUpdated(c models.Comment) bool {
	if c.BookID != v.bookID || c.SenderID == v.selfID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.index(c.ID)
	if i < 0 {
		return false
	}
	v.comments[i] = c
	return true
}

func (v *BookView) ApplyCommentDeleted(ev CommentDeleted) bool {
	if ev.BookID != v.bookID || ev.SenderID == v.selfID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.index(ev.CommentID)
	if i < 0 {
		return false
	}
	v.comments = append(v.comments[:i], v.comments[i+1:]...)
	return true
}

// ApplyInteraction replaces the snapshot. Counts are never adjusted
// locally.
func (v *BookView) ApplyInteraction(snapshot models.BookInteraction) bool {
	if snapshot.BookID != v.bookID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	s := snapshot
	s.LikedBy = append([]string(nil), snapshot.LikedBy...)
	s.DislikedBy = append([]string(nil), snapshot.DislikedBy...)
	v.interaction = &s
	return true
}

func (v *BookView) Comments() []models.Comment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]models.Comment(nil), v.comments...)
}

func (v *BookView) Interaction() (models.BookInteraction, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.interaction == nil {
		return models.BookInteraction{}, false
	}
	return *v.interaction, true
}

func (v *BookView) index(id string) int {
	for i := range v.comments {
		if v.comments[i].ID == id {
			return i
		}
	}
	return -1
}
