package services

import (
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/ws"
)

// AdminFeed pushes snapshots of new records to the admin dashboard room.
// Callers invoke it only after their write has committed.
type AdminFeed struct {
	hub ws.EventPublisher
}

func NewAdminFeed(hub ws.EventPublisher) *AdminFeed {
	return &AdminFeed{hub: hub}
}

func (f *AdminFeed) UserRegistered(user models.User) {
	user.PasswordHash = ""
	f.hub.Publish(ws.AdminRoom, ws.Event{Op: ws.OpNewUser, Data: user})
}

func (f *AdminFeed) BookCreated(book models.Book) {
	f.hub.Publish(ws.AdminRoom, ws.Event{Op: ws.OpNewBook, Data: book})
}

func (f *AdminFeed) ReportSubmitted(report models.Report) {
	f.hub.Publish(ws.AdminRoom, ws.Event{Op: ws.OpNewReport, Data: report})
}
